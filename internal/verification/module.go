package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	"github.com/shandysiswandi/otpgate/internal/verification/inbound"
	"github.com/shandysiswandi/otpgate/internal/verification/outbound/artifact"
	"github.com/shandysiswandi/otpgate/internal/verification/outbound/delivery"
	"github.com/shandysiswandi/otpgate/internal/verification/outbound/eligibility"
	"github.com/shandysiswandi/otpgate/internal/verification/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/verification/usecase"
	"github.com/twilio/twilio-go"
)

var (
	// ErrUnknownDriver is returned for a driver name the module does not know.
	ErrUnknownDriver = errors.New("verification: unknown driver")
	// ErrMissingDependency is returned when a configured driver lacks its resource.
	ErrMissingDependency = errors.New("verification: missing dependency")
	// ErrBrandRequired is returned when verification.brand_name is empty.
	ErrBrandRequired = errors.New("verification: brand_name is required")
	// ErrCodeLengthMismatch is returned when verification.code_length disagrees
	// with the code length the validator or the local code generator accepts.
	ErrCodeLengthMismatch = errors.New("verification: code_length mismatch")
)

type (
	usecaseEligibility interface {
		IsEligible(ctx context.Context, phone string) (bool, error)
	}
	usecaseDelivery interface {
		Send(ctx context.Context, b entity.Binding) error
		Verify(ctx context.Context, phone, code, referenceID string) (entity.Verdict, error)
	}
	usecaseArtifact interface {
		Issue(ctx context.Context, phone string) (string, error)
	}
)

// Dependency carries the shared resources. Resources a configured driver
// does not use may be nil.
type Dependency struct {
	Config     config.Config
	Instrument instrument.Instrumentation
	Validator  validator.Validator
	Router     *router.Router
	Clock      clock.Clocker
	Goroutine  *goroutine.Manager
	UID        uid.NumberID
	HMAC       hash.Hash
	OTP        otp.OTP
	JWT        jwt.JWT
	AWS        *aws.Config
	DBConn     *pgxpool.Pool
	CacheConn  redis.UniversalClient
	Storage    storage.Storage
	Messaging  messaging.Publisher
}

func New(dep Dependency) error {
	template := entity.BindingTemplate{
		ApplicationID:       dep.Config.GetString("verification.application_id"),
		BrandName:           strings.TrimSpace(dep.Config.GetString("verification.brand_name")),
		OriginationIdentity: dep.Config.GetString("verification.origination_identity"),
		Language:            dep.Config.GetString("verification.language"),
		CodeLength:          dep.Config.GetInt("verification.code_length"),
		Validity:            dep.Config.GetMinute("verification.validity_minutes"),
		AllowedAttempts:     dep.Config.GetInt("verification.allowed_attempts"),
	}
	if template.BrandName == "" {
		return ErrBrandRequired
	}
	if err := checkCodeLength(dep, template.Bind("").CodeLength); err != nil {
		return err
	}

	repoEligibility, err := newEligibility(dep)
	if err != nil {
		return err
	}

	repoDelivery, err := newDelivery(dep)
	if err != nil {
		return err
	}

	repoArtifact, downloadJWT, err := newArtifact(dep)
	if err != nil {
		return err
	}

	ucDep := usecase.Dependency{
		Eligibility: repoEligibility,
		Delivery:    repoDelivery,
		Artifact:    repoArtifact,
		Template:    template,
		Validator:   dep.Validator,
		JWT:         downloadJWT,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		Goroutine:   dep.Goroutine,
	}

	if dep.Config.GetBool("verification.events.enabled") {
		if dep.Messaging == nil || dep.HMAC == nil || dep.UID == nil {
			return fmt.Errorf("%w: events need messaging, hmac and uid", ErrMissingDependency)
		}
		ucDep.RepoMessaging = mq.NewMessaging(dep.Messaging, dep.HMAC, dep.UID, dep.Instrument)
	}

	inbound.RegisterHTTPEndpoint(dep.Router, usecase.New(ucDep))

	return nil
}

func checkCodeLength(dep Dependency, n int) error {
	sample := usecase.VerifyOTPInput{PhoneNumber: "+14155550100", OTP: strings.Repeat("0", n)}
	if err := dep.Validator.Validate(sample); err != nil {
		return fmt.Errorf("%w: validator rejects %d digit codes", ErrCodeLengthMismatch, n)
	}

	driver := strings.TrimSpace(dep.Config.GetString("verification.delivery.driver"))
	if driver == delivery.DriverLocal && dep.OTP != nil && dep.OTP.Length() != n {
		return fmt.Errorf("%w: generator issues %d digit codes, want %d", ErrCodeLengthMismatch, dep.OTP.Length(), n)
	}

	return nil
}

func newEligibility(dep Dependency) (usecaseEligibility, error) {
	driver := strings.TrimSpace(dep.Config.GetString("verification.eligibility.driver"))

	switch driver {
	case eligibility.DriverStatic:
		return eligibility.NewStatic(dep.Config.GetArray("verification.eligibility.static.allowed"), dep.Instrument), nil
	case eligibility.DriverPostgres:
		if dep.DBConn == nil {
			return nil, fmt.Errorf("%w: eligibility driver %q needs database", ErrMissingDependency, driver)
		}
		return eligibility.NewPostgres(dep.DBConn, dep.Config.GetString("verification.eligibility.postgres.table"), dep.Instrument), nil
	case eligibility.DriverDynamoDB:
		if dep.AWS == nil {
			return nil, fmt.Errorf("%w: eligibility driver %q needs aws", ErrMissingDependency, driver)
		}
		client := dynamodb.NewFromConfig(*dep.AWS, func(o *dynamodb.Options) {
			if ep := strings.TrimSpace(dep.Config.GetString("aws.endpoint")); ep != "" {
				o.BaseEndpoint = aws.String(ep)
			}
		})
		return eligibility.NewDynamoDB(client,
			dep.Config.GetString("verification.eligibility.dynamodb.table"),
			dep.Config.GetString("verification.eligibility.dynamodb.key"),
			dep.Instrument,
		), nil
	default:
		return nil, fmt.Errorf("%w: eligibility %q", ErrUnknownDriver, driver)
	}
}

func newDelivery(dep Dependency) (usecaseDelivery, error) {
	driver := strings.TrimSpace(dep.Config.GetString("verification.delivery.driver"))

	switch driver {
	case delivery.DriverPinpoint:
		if dep.AWS == nil {
			return nil, fmt.Errorf("%w: delivery driver %q needs aws", ErrMissingDependency, driver)
		}
		client := pinpoint.NewFromConfig(*dep.AWS, func(o *pinpoint.Options) {
			if ep := strings.TrimSpace(dep.Config.GetString("aws.endpoint")); ep != "" {
				o.BaseEndpoint = aws.String(ep)
			}
		})
		return delivery.NewPinpoint(client, dep.Config.GetString("verification.application_id"), dep.Instrument), nil
	case delivery.DriverTwilio:
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: dep.Config.GetString("verification.delivery.twilio.account_sid"),
			Password: dep.Config.GetString("verification.delivery.twilio.auth_token"),
		})
		return delivery.NewTwilio(client.VerifyV2, dep.Config.GetString("verification.delivery.twilio.service_sid"), dep.Instrument), nil
	case delivery.DriverLocal:
		if dep.CacheConn == nil || dep.Messaging == nil || dep.OTP == nil || dep.HMAC == nil {
			return nil, fmt.Errorf("%w: delivery driver %q needs redis, messaging, otp and hmac", ErrMissingDependency, driver)
		}
		return delivery.NewLocal(delivery.LocalConfig{
			Redis:     dep.CacheConn,
			OTP:       dep.OTP,
			Hash:      dep.HMAC,
			Publisher: dep.Messaging,
			Topic:     dep.Config.GetString("verification.delivery.local.topic"),
		}, dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: delivery %q", ErrUnknownDriver, driver)
	}
}

func newArtifact(dep Dependency) (usecaseArtifact, jwt.JWT, error) {
	driver := strings.TrimSpace(dep.Config.GetString("verification.artifact.driver"))
	object := dep.Config.GetString("verification.artifact.key")

	switch driver {
	case artifact.DriverStorage:
		if dep.Storage == nil {
			return nil, nil, fmt.Errorf("%w: artifact driver %q needs storage", ErrMissingDependency, driver)
		}
		return artifact.NewStorage(dep.Storage,
			dep.Config.GetString("verification.artifact.bucket"),
			object,
			dep.Config.GetMinute("verification.artifact.expiry_minutes"),
			dep.Instrument,
		), nil, nil
	case artifact.DriverToken:
		if dep.JWT == nil || dep.HMAC == nil {
			return nil, nil, fmt.Errorf("%w: artifact driver %q needs jwt and hmac", ErrMissingDependency, driver)
		}
		return artifact.NewToken(dep.JWT, dep.HMAC, dep.Config.GetString("verification.artifact.base_url"), object, dep.Instrument), dep.JWT, nil
	default:
		return nil, nil, fmt.Errorf("%w: artifact %q", ErrUnknownDriver, driver)
	}
}
