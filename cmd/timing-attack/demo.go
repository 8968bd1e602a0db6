package main

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	timingattack "github.com/senadmustafi/Timing-attack"
	"github.com/senadmustafi/Timing-attack/internal/config"
	"github.com/senadmustafi/Timing-attack/internal/remote"
	"github.com/senadmustafi/Timing-attack/internal/store"
	"github.com/senadmustafi/Timing-attack/internal/target"
)

var (
	demoLength int
	demoHTTP   bool
	noPause    bool
)

// demoCmd attacks the built-in vulnerable target
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Attack the built-in vulnerable login check",
	Long: `Loads the configured credentials, wraps them in an early-exit password check
and recovers the target account's password from rejection timings.

With --http the check is served on a loopback port and attacked through HTTP
requests instead of direct calls.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().IntVar(&demoLength, "length", 0, "Known password length (skips length inference)")
	demoCmd.Flags().BoolVar(&demoHTTP, "http", false, "Attack the check over loopback HTTP")
	demoCmd.Flags().BoolVar(&noPause, "no-pause", false, "Do not wait for Enter between phases")
}

// openStore loads the configured credentials into memory. A SQLite store is
// copied so the timed path never touches the database.
func openStore(ctx context.Context, c *config.Config) (*store.MemoryStore, error) {
	if c.Store.Path == "" {
		return store.NewMemoryStore(c.Store.Accounts), nil
	}
	db, err := store.OpenSQLite(c.Store.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	all, err := db.All(ctx)
	if err != nil {
		return nil, err
	}
	return store.NewMemoryStore(all), nil
}

func newVerifier(ctx context.Context, c *config.Config) (*target.Verifier, error) {
	s, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded credentials", zap.Int("accounts", s.Len()), zap.String("path", c.Store.Path))
	v := target.NewVerifier(s)
	v.CharDelay = c.GetCharDelay()
	return v, nil
}

// withProfile returns a copy of c that measures with p when c still has the
// in-process default.
func withProfile(c *config.Config, p timingattack.Profile) *config.Config {
	cp := *c
	if profile, _ := timingattack.ParseProfile(cp.Attack.Profile); profile == timingattack.InProcess {
		cp.Attack.Profile = p.String()
	}
	return &cp
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	v, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !demoHTTP {
		return runPhases(ctx, cmd.InOrStdin(), out, v, cfg)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	client, err := remote.NewClient("http://" + ln.Addr().String() + target.LoginPath)
	if err != nil {
		ln.Close()
		return err
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	g.Go(func() error {
		return target.Serve(srvCtx, ln, target.NewHandler(v, logger), logger)
	})
	g.Go(func() error {
		defer stopServer()
		return runPhases(gctx, cmd.InOrStdin(), out, client, withProfile(cfg, timingattack.LocalNetwork))
	})
	return g.Wait()
}

// runPhases infers the length (unless --length is set), optionally pauses,
// then recovers the password.
func runPhases(ctx context.Context, in io.Reader, out io.Writer, oracle timingattack.Oracle, c *config.Config) error {
	account := c.Target.Account
	log := logger.With(zap.String("run_id", uuid.NewString()))
	opts := append(c.Options(), timingattack.WithLogger(log))
	if verbose {
		opts = append(opts, timingattack.WithProgress(stepPrinter(out)))
	}

	length := demoLength
	if length <= 0 {
		l, table, err := timingattack.InferLength(ctx, oracle, account, c.Attack.MaxLength, opts...)
		if err != nil {
			return err
		}
		renderRanking(out, table, c.Attack.TopN)
		if l == 0 {
			ok, err := oracle.Check(ctx, account, "")
			if err != nil {
				return err
			}
			renderRecover(out, account, &timingattack.RecoverResult{Found: ok})
			if !ok {
				return fmt.Errorf("%w: inferred length 0 but the empty candidate was rejected", timingattack.ErrInvalidArgument)
			}
			return nil
		}
		length = l
		pause(in, out, c.Attack.Pause && !noPause)
	}

	res, err := timingattack.Recover(ctx, oracle, account, length, opts...)
	if res != nil {
		renderRecover(out, account, res)
	}
	return err
}
