package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"telegram-storefront/internal/model"
)

// initData validation errors.
var (
	ErrInitDataMissing = errors.New("init data missing")
	ErrInitDataInvalid = errors.New("init data signature invalid")
	ErrInitDataExpired = errors.New("init data expired")
)

// authDateSkew is how far auth_date may run ahead of the server clock.
const authDateSkew = time.Minute

// InitData is the verified subset of a Mini App launch payload.
type InitData struct {
	User     model.Identity
	AuthDate time.Time
	QueryID  string
}

// ParseInitData verifies the signature and age of a raw initData query string.
// A maxAge of zero skips the age check; an auth_date in the future is always
// rejected beyond authDateSkew.
func ParseInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	if raw == "" {
		return nil, ErrInitDataMissing
	}

	// Expiry is checked below against the injected clock.
	if err := initdata.Validate(raw, botToken, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitDataInvalid, err)
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitDataInvalid, err)
	}

	authDate := data.AuthDate()
	if authDate.Unix() <= 0 {
		return nil, fmt.Errorf("%w: auth_date missing", ErrInitDataInvalid)
	}
	age := now.Sub(authDate)
	if age < -authDateSkew {
		return nil, fmt.Errorf("%w: auth_date is in the future", ErrInitDataInvalid)
	}
	if maxAge > 0 && age > maxAge {
		return nil, ErrInitDataExpired
	}

	u := data.User
	if u.ID == 0 {
		return nil, fmt.Errorf("%w: user missing", ErrInitDataInvalid)
	}

	username := u.Username
	if username == "" {
		username = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}

	return &InitData{
		User: model.Identity{
			ID:        u.ID,
			Username:  username,
			AvatarURL: u.PhotoURL,
		},
		AuthDate: authDate,
		QueryID:  data.QueryID,
	}, nil
}
