package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type DownloadInput struct {
	Token string
}

type DownloadOutput struct {
	Object string
}

// Download checks a token minted by the token artifact issuer. The content
// behind the object is a stub.
func (s *Usecase) Download(ctx context.Context, in DownloadInput) (*DownloadOutput, error) {
	ctx, span := s.startSpan(ctx, "Download")
	defer span.End()

	if s.jwt == nil {
		return nil, goerror.NewBusiness(MsgDownloadOff, goerror.CodeNotFound)
	}

	token := strings.TrimSpace(in.Token)
	if token == "" {
		return nil, goerror.NewBusiness(MsgDownloadInvalid, goerror.CodeUnauthorized)
	}

	claims, err := s.jwt.Verify(token)
	if err != nil {
		slog.WarnContext(ctx, "download token rejected", "error", err)
		return nil, goerror.NewBusiness(MsgDownloadInvalid, goerror.CodeUnauthorized)
	}

	return &DownloadOutput{Object: claims.Object}, nil
}
