package http

import (
	"github.com/parkspot-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/parkspot-api/internal/infrastructure/jwt"
	"github.com/parkspot-api/internal/infrastructure/otpcache"
	s3infra "github.com/parkspot-api/internal/infrastructure/s3"
	"github.com/parkspot-api/internal/infrastructure/smtp"
	"github.com/parkspot-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
// SMSSender, Receipts and JWTProvider may be nil; the affected features
// degrade instead of failing startup.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	BookingRepo *dynamo.BookingRepo
	OTPCache    *otpcache.Store
	Receipts    *s3infra.ReceiptStore
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
