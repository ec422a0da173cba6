package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deletescape/gitdump/internal/config"
	"github.com/deletescape/gitdump/pkg/gitdump"
)

var v = config.NewViper()

var list bool
var rootCmd = &cobra.Command{
	Use:   "gitdump URL [DIR]",
	Short: "gitdump reconstructs git repositories from exposed .git folders",
	Long: `gitdump downloads the .git directory of a web server, either by crawling its
directory listing or by guessing and deriving paths from git metadata, and checks
out the working tree. Flags can also be set as GITDUMP_<FLAG> environment variables.`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		log.DefaultLogger.Level = log.InfoLevel
		if cfg.Verbose > 0 {
			log.DefaultLogger.Level = log.DebugLevel
		}

		var dir string
		if len(args) >= 2 {
			dir = args[1]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if list {
			return gitdump.CloneList(ctx, args[0], dir, cfg)
		}
		return gitdump.Clone(ctx, args[0], dir, cfg)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntP(config.KeyJobs, "j", config.DefaultJobs, "number of concurrent requests")
	flags.IntP(config.KeyRetries, "r", config.DefaultRetries, "attempts per request before giving up")
	flags.StringP(config.KeyTimeout, "t", config.DefaultTimeout.String(), "timeout per request, as a duration or in seconds")
	flags.CountP(config.KeyVerbose, "v", "log debug output")
	flags.BoolP(config.KeyForce, "f", false, "overrides DIR if it already exists")
	flags.BoolP(config.KeyKeep, "k", false, "keeps already downloaded files in DIR, useful if you keep being ratelimited by server")
	flags.BoolVarP(&list, "list", "l", false, "allows you to supply the name of a file containing a list of domain names instead of just one domain")

	bindFlags(v, rootCmd)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, key := range []string{
		config.KeyJobs,
		config.KeyRetries,
		config.KeyTimeout,
		config.KeyVerbose,
		config.KeyForce,
		config.KeyKeep,
	} {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}
