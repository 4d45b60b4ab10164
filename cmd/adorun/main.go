package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "adorun",
	Short:         "Run batches of REST operations against an on-premises DevOps server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	v := viper.GetViper()
	v.SetDefault("config", "")
	v.SetDefault("history_limit", 20)

	// Environment variables support: ADORUN_CONFIG, ADORUN_SERVER, ADORUN_PERSONAL_ACCESS_TOKEN, ...
	v.SetEnvPrefix("ADORUN")
	v.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.String("config", v.GetString("config"), "path to the YAML config file")
	pf.String("server", "", "collection base URL (overrides config)")
	pf.Bool("no-store", false, "do not open the run-history store")
	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("server", pf.Lookup("server"))
	_ = v.BindPFlag("no_store", pf.Lookup("no-store"))

	rf := runCmd.Flags()
	rf.String("items", "", "input items: JSON array or JSON Lines file, '-' for stdin")
	rf.String("output", "", "write the output list to this file instead of stdout")
	rf.String("resource", "", "resource to operate on (overrides config)")
	rf.String("operation", "", "operation to run (overrides config)")
	rf.Bool("continue-on-fail", false, "turn item failures into error outputs")
	rf.Bool("memoize-lookups", false, "cache name lookups for the duration of the run")
	rf.String("normalize", "", "uniform or legacy")
	_ = v.BindPFlag("items", rf.Lookup("items"))
	_ = v.BindPFlag("output", rf.Lookup("output"))
	_ = v.BindPFlag("resource", rf.Lookup("resource"))
	_ = v.BindPFlag("operation", rf.Lookup("operation"))
	_ = v.BindPFlag("continue_on_fail", rf.Lookup("continue-on-fail"))
	_ = v.BindPFlag("memoize_lookups", rf.Lookup("memoize-lookups"))
	_ = v.BindPFlag("normalize", rf.Lookup("normalize"))

	hf := historyCmd.Flags()
	hf.Int("limit", v.GetInt("history_limit"), "number of runs to show (0 = all)")
	hf.Int64("run", 0, "show the recorded outputs of this run id")
	_ = v.BindPFlag("history_limit", hf.Lookup("limit"))
	_ = v.BindPFlag("history_run", hf.Lookup("run"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(operationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
