package user

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/libreta/backend/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when another user,
		// not listed in excludedIDs, already has the username or email.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclIDs ...string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclIDs...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return pkgerrors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := core.NowFunc()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of the user found by username or email.
func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// AddOrUpdate activates the user with the given username or email, creating it when missing,
// and sets its password. admin grants every role.
func (svc *Service) AddOrUpdate(ctx context.Context, uname, email, pwd string, admin bool) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: lookup})
	exists := err == nil
	if err != nil && err != ErrNotFound {
		return User{}, pkgerrors.Wrap(err, "finding user")
	}
	if !exists {
		usr = User{Name: uname, Username: uname, Email: email, CreatedAt: core.NowFunc()}
		if usr.Name == "" {
			usr.Name = email
		}
	}
	if admin {
		usr.Roles = AllRoles
	} else if len(usr.Roles) == 0 {
		usr.Roles = TeacherRoles
	}
	usr.IsActive = true
	usr.UpdatedAt = core.NowFunc()
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}
	if exists {
		return svc.repo.UpdateUser(ctx, usr)
	}
	return svc.repo.CreateUser(ctx, usr)
}

// IssueResetToken returns the encoded uid and a reset token for the active user found by
// username or email.
func (svc *Service) IssueResetToken(ctx context.Context, tokens *ResetTokens, uname string) (uid, token string, err error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return "", "", err
	}
	if !usr.IsActive {
		return "", "", ErrNotFound
	}
	return EncodeUID(usr), tokens.Make(usr), nil
}

// ResetPassword checks the reset token and sets the new password. Unknown users and bad or
// expired tokens are reported as a token field error.
func (svc *Service) ResetPassword(ctx context.Context, tokens *ResetTokens, data ResetUserPassword) error {
	tokenErr := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	id, err := DecodeUID(data.UID)
	if err != nil {
		return tokenErr(err)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return tokenErr(ErrInvalidToken)
		}
		return pkgerrors.Wrap(err, "finding user")
	}
	if !usr.IsActive {
		return tokenErr(ErrInvalidToken)
	}
	if err := tokens.Verify(usr, data.Token); err != nil {
		return tokenErr(err)
	}
	if tag := PasswordPolicyViolation(data.Password, usr.Name, usr.Username, usr.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdPolicyTexts[tag]})
	}

	if err := usr.SetPassword(data.Password); err != nil {
		return pkgerrors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
