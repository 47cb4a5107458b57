// Package user provides the account and profile use cases
package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/domain/user"
	"github.com/alchemorsel/client/internal/infrastructure/http/gateway"
	"github.com/alchemorsel/client/internal/infrastructure/validation"
	"github.com/alchemorsel/client/internal/ports/inbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// AvatarField is the multipart field the API reads the avatar from
const AvatarField = "avatar"

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// tokenFields are the object keys a login response may carry the token in
var tokenFields = []string{"token", "accessToken", "access_token"}

// Service implements the user use cases
type Service struct {
	public    *gateway.Gateway
	auth      *gateway.Gateway
	validator *validation.Validator
	logger    *zap.Logger
}

// NewService creates a new user service
func NewService(gateways *gateway.Factory, validator *validation.Validator, logger *zap.Logger) *Service {
	return &Service{
		public:    gateways.Public(),
		auth:      gateways.Authenticated(),
		validator: validator,
		logger:    logger.Named("user-service"),
	}
}

// Register creates an account
func (s *Service) Register(ctx context.Context, reg user.Registration) (*user.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := s.validator.Struct(reg); err != nil {
		return nil, err
	}

	var created user.User
	if err := s.public.Post(ctx, "/register", reg, &created); err != nil {
		return nil, err
	}
	s.logger.Info("Account registered", zap.String("email", reg.Email))
	return &created, nil
}

// Login exchanges credentials for a bearer token. It does not start a
// session; pass the token to the session coordinator.
func (s *Service) Login(ctx context.Context, creds user.Credentials) (string, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := s.validator.Struct(creds); err != nil {
		return "", err
	}

	var raw json.RawMessage
	if err := s.public.Post(ctx, "/login", creds, &raw); err != nil {
		return "", err
	}

	token := extractToken(raw)
	if token == "" {
		return "", apperrors.NewAppError(apperrors.CodeAPIError, "The server did not return a session token", "")
	}
	return token, nil
}

// extractToken accepts a JSON string, an object with a token field, or the
// bare token as text.
func extractToken(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if !gjson.ValidBytes(trimmed) {
		return string(trimmed)
	}

	result := gjson.ParseBytes(trimmed)
	switch {
	case result.Type == gjson.String:
		return strings.TrimSpace(result.Str)
	case result.IsObject():
		for _, field := range tokenFields {
			if v := result.Get(field); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	return ""
}

// CurrentUser returns the identity behind the current token
func (s *Service) CurrentUser(ctx context.Context) (*user.User, error) {
	var u user.User
	if err := s.auth.Get(ctx, "/users/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Edit updates the profile of user id
func (s *Service) Edit(ctx context.Context, id string, update user.ProfileUpdate) (*user.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidArgumentError("User ID is required")
	}
	if err := s.validator.Struct(update); err != nil {
		return nil, err
	}

	var updated user.User
	if err := s.auth.Put(ctx, "/edit/"+url.PathEscape(id), update, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the account of user id
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewInvalidArgumentError("User ID is required")
	}
	if err := s.auth.Delete(ctx, "/user/"+url.PathEscape(id), nil); err != nil {
		return err
	}
	s.logger.Info("Account deleted", zap.String("user_id", id))
	return nil
}

// UploadAvatar uploads an image file as the profile picture
func (s *Service) UploadAvatar(ctx context.Context, fileName string, content io.Reader) (*user.AvatarUpload, error) {
	if content == nil || strings.TrimSpace(fileName) == "" {
		return nil, apperrors.NewInvalidArgumentError("An image file is required")
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return nil, apperrors.NewInvalidArgumentError("Only PNG, JPEG, GIF or WebP images can be uploaded")
	}

	var result user.AvatarUpload
	err := s.auth.PostMultipart(ctx, "/user/upload-avatar", gateway.MultipartFile{
		FieldName: AvatarField,
		FileName:  filepath.Base(fileName),
		Content:   content,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

var _ inbound.UserService = (*Service)(nil)
