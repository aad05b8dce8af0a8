package firebase

import (
	"context"

	"google.golang.org/api/identitytoolkit/v3"
)

const (
	oobPasswordReset = "PASSWORD_RESET"
	oobVerifyEmail   = "VERIFY_EMAIL"
)

// toolkit is the slice of the Identity Toolkit REST API the provider calls.
type toolkit interface {
	verifyPassword(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error)
	signup(ctx context.Context, email, password string) (*identitytoolkit.SignupNewUserResponse, error)
	sendOobCode(ctx context.Context, req *identitytoolkit.Relyingparty) error
	verifyAssertion(ctx context.Context, postBody string) (*identitytoolkit.VerifyAssertionResponse, error)
	accountInfo(ctx context.Context, idToken string) (*identitytoolkit.UserInfo, error)
}

type restToolkit struct {
	rp *identitytoolkit.RelyingpartyService
}

func (t restToolkit) verifyPassword(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error) {
	return t.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
}

func (t restToolkit) signup(ctx context.Context, email, password string) (*identitytoolkit.SignupNewUserResponse, error) {
	return t.rp.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
}

func (t restToolkit) sendOobCode(ctx context.Context, req *identitytoolkit.Relyingparty) error {
	_, err := t.rp.GetOobConfirmationCode(req).Context(ctx).Do()
	return err
}

func (t restToolkit) verifyAssertion(ctx context.Context, postBody string) (*identitytoolkit.VerifyAssertionResponse, error) {
	return t.rp.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          postBody,
		RequestUri:        "http://localhost",
		ReturnSecureToken: true,
	}).Context(ctx).Do()
}

func (t restToolkit) accountInfo(ctx context.Context, idToken string) (*identitytoolkit.UserInfo, error) {
	res, err := t.rp.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(res.Users) == 0 {
		return nil, errNoAccountInfo
	}
	return res.Users[0], nil
}
