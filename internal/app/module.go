package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/verification"
)

func (a *App) initModules() {
	dep := verification.Dependency{
		Config:     a.config,
		Instrument: a.ins,
		Validator:  a.validator,
		Router:     a.router,
		Clock:      a.clock,
		Goroutine:  a.goroutine,
		UID:        a.uid,
		HMAC:       a.hmac,
		OTP:        a.hotp,
		JWT:        a.jwt,
		AWS:        a.aws,
		DBConn:     a.dbConn,
		Storage:    a.storage,
		Messaging:  a.messaging,
	}
	// a typed nil would defeat the nil check in the module
	if a.cacheConn != nil {
		dep.CacheConn = a.cacheConn
	}

	if err := verification.New(dep); err != nil {
		slog.Error("failed to init module verification", "error", err)
		os.Exit(1)
	}
}
