package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hoteldesk/internal/cli/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hoteldesk",
	Short: "HotelDesk CLI - hotel reports from the terminal",
	Long: `HotelDesk CLI talks to the HotelDesk API.
It shows revenue, occupancy and guest reports, exports saved reports,
and manages scheduled report deliveries.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hoteldesk-cli.yaml)")
	rootCmd.PersistentFlags().String("api-url", "http://localhost:8080", "HotelDesk API URL")
	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))

	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewScheduleCommand())
	rootCmd.AddCommand(commands.NewDashboardCommand())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.SetConfigFile(filepath.Join(home, ".hoteldesk-cli.yaml"))
	}

	viper.SetEnvPrefix("HOTELDESK")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
