package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"
	"github.com/spf13/pflag"

	"github.com/forseti-judge/autoscaler/config"
)

func normalize(name string) string {
	from := []string{"-", "_"}
	to := "."
	for _, sep := range from {
		name = strings.Replace(name, sep, to, -1)
	}
	return strings.ToLower(name)
}

// NormalizeFlags allows for flags to be case and separator insensitive.
// Use it by passing it to cobra.Command.SetGlobalNormalizationFunc
func NormalizeFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	lookup := map[string]string{"help": "help", normalize(name): name}

	f.VisitAll(func(f *pflag.Flag) {
		lookup[normalize(f.Name)] = f.Name
	})

	return pflag.NormalizedName(lookup[normalize(name)])
}

// MergeConfig builds the effective configuration. Later sources win:
// defaults, then the config file (if any), then environment variables,
// then the non-zero values of flagConf.
//
// If flags is not nil, every flag that was set on the command line is
// applied last, so zero values like --Scaling.MinReplicas=0 or
// --DryRun=false still override the file and the environment.
func MergeConfig(file string, flagConf config.Config, flags *pflag.FlagSet) (config.Config, error) {
	conf := config.DefaultConfig()
	if err := config.ParseFile(file, &conf); err != nil {
		return conf, err
	}

	if err := config.FromEnv(&conf); err != nil {
		return conf, err
	}

	// file and env vals <- cli val
	if err := mergo.MergeWithOverwrite(&conf, flagConf); err != nil {
		return conf, err
	}

	if flags != nil {
		if err := applyChangedFlags(&conf, flags); err != nil {
			return conf, err
		}
	}
	return conf, nil
}

// applyChangedFlags copies the value of every changed config flag onto conf.
func applyChangedFlags(conf *config.Config, flags *pflag.FlagSet) error {
	var configFile string
	target := ConfigFlags(conf, &configFile)

	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		dst := target.Lookup(f.Name)
		if dst == nil {
			return
		}
		if src, ok := f.Value.(pflag.SliceValue); ok {
			if d, ok := dst.Value.(pflag.SliceValue); ok {
				err = d.Replace(src.GetSlice())
				return
			}
		}
		if serr := dst.Value.Set(f.Value.String()); serr != nil {
			err = fmt.Errorf("flag --%s: %v", f.Name, serr)
		}
	})
	return err
}

// TempConfigFile writes the configuration to a temporary file.
// Returns:
// - "path" is the path of the file.
// - "cleanup" can be called to remove the temporary file.
func TempConfigFile(c config.Config, name string) (path string, cleanup func()) {
	tmpdir, err := os.MkdirTemp("", "")
	if err != nil {
		panic(err)
	}

	cleanup = func() {
		os.RemoveAll(tmpdir)
	}

	p := filepath.Join(tmpdir, name)
	if err := config.ToYamlFile(c, p); err != nil {
		panic(err)
	}
	return p, cleanup
}
