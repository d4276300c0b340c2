package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisync/teleclinic/api"
	"github.com/medisync/teleclinic/config"
	"github.com/medisync/teleclinic/internal/auth"
)

// Handlers groups everything the HTTP server mounts.
type Handlers struct {
	Doctor    *api.DoctorHandler
	Patient   *api.PatientHandler
	Admin     *api.AdminHandler
	Signaling *api.SignalingHandler
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, verifier auth.Verifier, handlers Handlers) error {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	handlers.Doctor.Register(engine.Group("/doctor"), api.RequireRole(verifier, auth.RoleDoctor))
	handlers.Patient.Register(engine.Group("/patient"), api.RequireRole(verifier, auth.RolePatient))
	handlers.Admin.Register(engine.Group("/admin"), api.RequireRole(verifier, auth.RoleAdmin))
	handlers.Patient.RegisterParticipant(engine, api.RequireRole(verifier, auth.RoleDoctor, auth.RolePatient))
	handlers.Signaling.Register(engine.Group("/"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
