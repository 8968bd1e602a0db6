package target

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoginPath is the route the handler serves.
const LoginPath = "/login"

// Form fields of a login request.
const (
	FieldAccount  = "account"
	FieldPassword = "password"
)

// NewHandler exposes v as POST /login. It answers 200 when the password is
// accepted, 401 when rejected and 500 when the check itself fails.
func NewHandler(v *Verifier, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+LoginPath, func(w http.ResponseWriter, r *http.Request) {
		account := r.PostFormValue(FieldAccount)
		ok, err := v.Check(r.Context(), account, r.PostFormValue(FieldPassword))
		if err != nil {
			logger.Error("Login check failed", zap.String("account", account), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		logger.Info("Login accepted", zap.String("account", account))
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Serve runs h on ln until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving login target", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	logger.Info("Login target stopped")
	return nil
}
