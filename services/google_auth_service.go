package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// TokenVerifier vérifie un credential fourni par le fournisseur d'identité
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (Payload, error)
}

// GoogleVerifier valide les ID tokens Google Identity Services
type GoogleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

// NewGoogleVerifier crée le vérificateur pour le client OAuth donné
func NewGoogleVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID est requis pour la connexion Google")
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de l'initialisation du validateur Google: %w", err)
	}
	return &GoogleVerifier{validator: v, clientID: clientID}, nil
}

// Verify valide signature, audience et expiration du token
func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (Payload, error) {
	payload, err := g.validator.Validate(ctx, credential, g.clientID)
	if err != nil {
		return Payload{}, err
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return Payload{}, fmt.Errorf("email Google non vérifié")
	}
	p := payloadFromClaims(payload.Claims)
	if p.Sub == "" {
		p.Sub = payload.Subject
	}
	return p, nil
}

func payloadFromClaims(claims map[string]interface{}) Payload {
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return Payload{
		Sub:         str("sub"),
		UID:         str("uid"),
		UserID:      str("user_id"),
		Email:       str("email"),
		Name:        str("name"),
		DisplayName: str("displayName"),
		Picture:     str("picture"),
	}
}

// GoogleAuthService échange un credential Google contre un token applicatif
type GoogleAuthService struct {
	verifier  TokenVerifier
	jwtSecret string
	ttl       time.Duration
	log       *zap.Logger
}

// NewGoogleAuthService crée une nouvelle instance de GoogleAuthService
func NewGoogleAuthService(verifier TokenVerifier, jwtSecret string, ttl time.Duration, log *zap.Logger) *GoogleAuthService {
	return &GoogleAuthService{verifier: verifier, jwtSecret: jwtSecret, ttl: ttl, log: log}
}

// SignIn vérifie le credential et émet le token applicatif
func (s *GoogleAuthService) SignIn(ctx context.Context, credential string) (*models.AuthResponse, error) {
	if credential == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "Missing Google credential")
	}
	if s.verifier == nil {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "Google sign-in is not configured")
	}

	payload, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		s.log.Info("credential Google refusé", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUnauthorized, "Invalid Google credential")
	}

	identity, ok := Normalize(payload)
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "Google account has no usable identity")
	}

	token, err := utils.GenerateToken(utils.Claims{
		SubjectID: identity.SubjectID,
		Email:     identity.Email,
		Name:      identity.Name,
		Picture:   identity.Picture,
	}, s.jwtSecret, s.ttl)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}

	s.log.Info("✓ Connexion Google", zap.String("sub", identity.SubjectID))
	return &models.AuthResponse{Token: token, User: identity}, nil
}
