package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/duely/duely/internal/logger"
)

type Authenticator struct{}

// GenerateSecret Use SHA1 to google authenticator compatibility
func (g *Authenticator) GenerateSecret(userID string) (string, string, error) {
	secret, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Duely",
		AccountName: userID,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		logger.Log.Errorf("error during totp secret generation: %v", err)
		return "", "", ErrInternalError
	}

	secretKey := secret.Secret()
	otpURI := secret.URL()
	return otpURI, secretKey, nil
}

func (g *Authenticator) GenerateCode(secret string) (string, error) {
	// TOTP codes are generated by the authenticator app, nothing to do here
	return "", nil
}

func (g *Authenticator) VerifyCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
