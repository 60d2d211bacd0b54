package user

import (
	"testing"
	"time"
)

func TestResetTokens(t *testing.T) {
	rt := NewResetTokens("secret", 3*24*time.Hour)

	now := time.Now()
	usr := User{
		ID:        "0b7e4c4e-4f8e-4f4c-9d5e-7b1f0c2f6a11",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken := rt.Make(usr)

	// generate an expired token
	dayLate := 4 * 24 * time.Hour
	rt.now = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := rt.Make(usr)
	rt.now = time.Now // reset

	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	otherKey := NewResetTokens("other secret", 3*24*time.Hour)

	tests := []struct {
		name    string
		rt      *ResetTokens
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: ErrInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "used after login", usr: loggedIn, token: validToken, wantErr: ErrInvalidToken},
		{name: "signed with another key", rt: otherKey, usr: usr, token: validToken, wantErr: ErrInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := rt
			if tt.rt != nil {
				gen = tt.rt
			}
			if err := gen.Verify(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "0b7e4c4e-4f8e-4f4c-9d5e-7b1f0c2f6a11"}
	id, err := DecodeUID(EncodeUID(usr))
	if err != nil || id != usr.ID {
		t.Errorf("DecodeUID() = %q, %v; want %q", id, err, usr.ID)
	}
	if _, err := DecodeUID("not base64!"); err != ErrInvalidToken {
		t.Errorf("DecodeUID() error = %v, want %v", err, ErrInvalidToken)
	}
}
