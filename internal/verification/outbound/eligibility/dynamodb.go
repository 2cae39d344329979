package eligibility

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

// DynamoDB defaults matching the UserRegistration table.
const (
	DefaultDynamoDBTable = "UserRegistration"
	DefaultDynamoDBKey   = "phone_number"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoDB treats a phone number as eligible when an item with that
// partition key exists.
type DynamoDB struct {
	client dynamoAPI
	table  string
	key    string
	ins    instrument.Instrumentation
}

func NewDynamoDB(client dynamoAPI, table, key string, ins instrument.Instrumentation) *DynamoDB {
	if table == "" {
		table = DefaultDynamoDBTable
	}
	if key == "" {
		key = DefaultDynamoDBKey
	}

	return &DynamoDB{client: client, table: table, key: key, ins: ins}
}

func (d *DynamoDB) IsEligible(ctx context.Context, phone string) (ok bool, err error) {
	ctx, span := startSpan(ctx, d.ins, DriverDynamoDB)
	defer func() { endSpan(span, ok, err) }()

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			d.key: &types.AttributeValueMemberS{Value: phone},
		},
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": d.key},
	})
	if err != nil {
		return false, fmt.Errorf("eligibility: dynamodb get item: %w", err)
	}

	return len(out.Item) > 0, nil
}
