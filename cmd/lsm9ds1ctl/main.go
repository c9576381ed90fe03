// Command lsm9ds1ctl configures, inspects and streams an LSM9DS1 on a
// Linux host over I2C or SPI.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/services/config"
)

var RootCmd = &cobra.Command{
	Use:          "lsm9ds1ctl",
	Short:        "configure and stream an LSM9DS1 9-axis IMU",
	SilenceUsage: true,
}

func RootCmdFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "configuration file path")
	cmd.PersistentFlags().Bool("debug", false, "toggle debug logging")
}

// -----------------------------------------------------------------------------
// init
// -----------------------------------------------------------------------------

func InitCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
	cmd.Flags().StringP("output", "o", config.DefaultConfig, "output file")
}

var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "init create a configuration template",
	Long: `init create a configuration template.
If --print is present the template is written to stdout.
Otherwise it is saved to --output, by default $HOME/.config/lsm9ds1/config.yaml.
An existing file is kept unless --yes is given.
`,
	Example: `  lsm9ds1ctl init --print
  lsm9ds1ctl init -o /etc/lsm9ds1/config.yaml -y`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := config.NewOpt()
		if p, _ := cmd.Flags().GetBool("print"); p {
			b, err := config.Template(opt)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		yes, _ := cmd.Flags().GetBool("yes")
		return config.Dump(opt, out, yes)
	},
}

// -----------------------------------------------------------------------------
// probe / configure / get / set / read
// -----------------------------------------------------------------------------

var ProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "probe reads both identity registers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		a.mu.Lock()
		id, err := a.dev.ID()
		var st lsm9ds1.Status
		if err == nil {
			st, err = a.dev.Status()
		}
		a.mu.Unlock()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "accel/gyro WHO_AM_I %#02x (want %#02x)\n", id.AccelGyro, lsm9ds1.WhoAmIAccelGyro)
		fmt.Fprintf(a.out, "magnetometer WHO_AM_I_M %#02x (want %#02x)\n", id.Mag, lsm9ds1.WhoAmIMag)
		fmt.Fprintf(a.out, "status ag=%#02x mag=%#02x\n", uint8(st.AccelGyro), uint8(st.Mag))
		if !id.Valid() {
			return fmt.Errorf("no LSM9DS1 on %s", a.desc.Opt.Bus.Interface)
		}
		return nil
	},
}

var ConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "configure writes the sensor section of the config to the part",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		got, err := a.configure()
		if err != nil {
			return err
		}
		log.Infoln("settings applied")
		return yaml.NewEncoder(a.out).Encode(config.SensorOptFrom(got))
	},
}

var GetCmd = &cobra.Command{
	Use:   "get [FIELD...]",
	Short: "get prints the current settings, or the named register fields",
	Example: `  lsm9ds1ctl get
  lsm9ds1ctl get CTRL_REG6_XL.FS_XL CTRL_REG2_M.FS`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			for _, f := range lsm9ds1.Fields() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-3s 0x%02X [%d:%d]\n",
					f.Name, f.Dev, f.Reg, f.Shift+f.Width-1, f.Shift)
			}
			return nil
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		a.mu.Lock()
		defer a.mu.Unlock()

		if len(args) == 0 {
			s, err := a.dev.Settings()
			if err != nil {
				return err
			}
			return yaml.NewEncoder(a.out).Encode(config.SensorOptFrom(s))
		}
		for _, name := range args {
			f, ok := lsm9ds1.FieldByName(name)
			if !ok {
				return fmt.Errorf("unknown field %q", name)
			}
			v, err := a.dev.Field(f)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintf(a.out, "%s=%d (%#02x)\n", f.Name, v, v)
		}
		return nil
	},
}

var SetCmd = &cobra.Command{
	Use:     "set FIELD=VALUE...",
	Short:   "set writes register fields, preserving the other bits",
	Example: `  lsm9ds1ctl set CTRL_REG1_G.ODR_G=3 CTRL_REG8.BDU=1`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		type write struct {
			f lsm9ds1.Field
			v uint8
		}
		// Parse everything first so a typo writes nothing.
		writes := make([]write, 0, len(args))
		for _, arg := range args {
			name, val, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("%q: want FIELD=VALUE", arg)
			}
			f, ok := lsm9ds1.FieldByName(name)
			if !ok {
				return fmt.Errorf("unknown field %q", name)
			}
			n, err := strconv.ParseUint(val, 0, 8)
			if err != nil || uint8(n) > f.Max() {
				return fmt.Errorf("%s takes 0..%d, got %q", f.Name, f.Max(), val)
			}
			writes = append(writes, write{f, uint8(n)})
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		a.mu.Lock()
		defer a.mu.Unlock()
		for _, w := range writes {
			if err := a.dev.SetField(w.f, w.v); err != nil {
				return fmt.Errorf("%s: %w", w.f.Name, err)
			}
			log.Debugf("%s <- %d", w.f.Name, w.v)
		}
		return nil
	},
}

var ReadCmd = &cobra.Command{
	Use:   "read",
	Short: "read prints one converted sample as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		v, err := a.readOnce()
		if err != nil {
			return err
		}
		return a.printJSON(v)
	},
}

// -----------------------------------------------------------------------------
// stream / serve
// -----------------------------------------------------------------------------

func StreamCmdFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("count", "n", 0, "stop after this many samples (0 runs until interrupted)")
	cmd.Flags().Uint32P("rate", "r", 0, "sample rate in Hz, overrides telemetry.rate_hz")
	cmd.Flags().Bool("raw", false, "also publish raw counts on imu/raw")
	cmd.Flags().Bool("no-configure", false, "leave the part's settings alone")
}

var StreamCmd = &cobra.Command{
	Use:   "stream",
	Short: "stream prints converted samples as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := prepareRun(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		n, _ := cmd.Flags().GetInt("count")
		if n <= 0 {
			n = -1
		}
		return a.run(cmd.Context(), runOpts{bridge: true, print: n})
	},
}

func ServeCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32P("rate", "r", 0, "sample rate in Hz, overrides telemetry.rate_hz")
	cmd.Flags().Bool("raw", false, "also publish raw counts on imu/raw")
	cmd.Flags().Bool("no-configure", false, "leave the part's settings alone")
	cmd.Flags().String("listen", "", "register debugger address, overrides debugger.listen")
	cmd.Flags().Bool("no-debugger", false, "do not start the register debugger")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve runs telemetry, the MQTT bridge and the register debugger",
	Long: `serve runs the sampler using the resolved configuration, by the following order:
1. path specified in --config flag
2. path defined in the LSM9DS1_CONFIG environment variable
3. default location $HOME/.config/lsm9ds1/config.yaml, /etc/lsm9ds1/config.yaml, current directory
Any key can be overridden with an LSM9DS1_ environment variable, e.g. LSM9DS1_MQTT_BROKER.
Edits to the telemetry section of the file take effect without a restart.
`,
	Example: `  lsm9ds1ctl serve --config=/etc/lsm9ds1/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := prepareRun(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		if l, _ := cmd.Flags().GetString("listen"); l != "" {
			a.desc.Opt.Debugger.Listen = l
		}
		noDbg, _ := cmd.Flags().GetBool("no-debugger")
		return a.run(cmd.Context(), runOpts{bridge: true, debugger: !noDbg})
	},
}

// prepareRun applies flag overrides, opens the part and, unless told not
// to, programs the configured settings.
func prepareRun(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, err
	}
	if r, _ := cmd.Flags().GetUint32("rate"); r > 0 {
		a.desc.Opt.Telemetry.RateHz = r
	}
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		a.desc.Opt.Telemetry.Raw = true
	}
	if err := a.desc.Opt.Validate(); err != nil {
		return nil, err
	}
	if err := a.open(); err != nil {
		return nil, err
	}
	if skip, _ := cmd.Flags().GetBool("no-configure"); !skip {
		got, err := a.configure()
		if err != nil {
			a.close()
			return nil, err
		}
		log.WithFields(toFields(config.SensorOptFrom(got).Map())).Infoln("settings applied")
	}
	return a, nil
}

func toFields(m map[string]string) log.Fields {
	f := make(log.Fields, len(m))
	for k, v := range m {
		f[k] = v
	}
	return f
}

func getRootCmd() *cobra.Command {
	RootCmdFlags(RootCmd)

	InitCmdFlags(InitCmd)
	RootCmd.AddCommand(InitCmd)

	RootCmd.AddCommand(ProbeCmd)
	RootCmd.AddCommand(ConfigureCmd)

	GetCmd.Flags().Bool("list", false, "list every register field instead of reading")
	RootCmd.AddCommand(GetCmd)
	RootCmd.AddCommand(SetCmd)
	RootCmd.AddCommand(ReadCmd)

	StreamCmdFlags(StreamCmd)
	RootCmd.AddCommand(StreamCmd)

	ServeCmdFlags(ServeCmd)
	RootCmd.AddCommand(ServeCmd)

	return RootCmd
}

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
