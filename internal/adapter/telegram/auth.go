package telegram

import (
	"context"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// termAuth implements auth.UserAuthenticator using the provided AuthInput.
type termAuth struct {
	input AuthInput
}

func (t termAuth) Phone(_ context.Context) (string, error) {
	return t.input.GetPhoneNumber()
}

func (t termAuth) Password(_ context.Context) (string, error) {
	return t.input.GetPassword()
}

func (t termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return t.input.GetCode()
}

func (t termAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (t termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	// Sign-up is not supported, the account must already exist.
	return auth.UserInfo{}, nil
}
