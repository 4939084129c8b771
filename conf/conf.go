package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

const (
	tagName        = "default"
	envPrefix      = "chainstate"
	configFileName = "conf.yml"
)

type Configuration struct {
	DataDir string `default:"data"`
	Log     struct {
		Level  string `default:"info"` // emergency, alert, critical, error, warn, notice, info, debug
		Module []string
	}
	Chainstate struct {
		DbType        string `default:"leveldb"`  // leveldb, badger, bolt or memdb
		CacheSize     int    `default:"33554432"` // engine block cache in bytes
		BatchSize     int    `default:"16777216"` // flush sub-batch threshold in bytes
		DontObfuscate bool   `default:"false"`
		ForceCompact  bool   `default:"false"`
		Wipe          bool   `default:"false"`
	}
}

func must(i interface{}, err error) interface{} {
	if err != nil {
		panic(err)
	}
	return i
}

// setDefaults registers every tagged field of Configuration, one struct
// level deep, as a viper default keyed "section.field".
func setDefaults(v *viper.Viper) {
	t := reflect.TypeOf(Configuration{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type.Kind() != reflect.Struct {
			if value, ok := field.Tag.Lookup(tagName); ok {
				v.SetDefault(field.Name, value)
			}
			continue
		}
		for j := 0; j < field.Type.NumField(); j++ {
			sub := field.Type.Field(j)
			if value, ok := sub.Tag.Lookup(tagName); ok {
				v.SetDefault(field.Name+"."+sub.Name, value)
			}
		}
	}
}

// LoadConfig merges, in increasing priority: struct defaults, the conf.yml
// found in the data directory, CHAINSTATE_* environment variables and the
// command-line options in args.
func LoadConfig(args []string) (*Configuration, error) {
	opts, err := InitArgs(args)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	setDefaults(v)

	dataDir := v.GetString("DataDir")
	if opts.DataDir != "" {
		dataDir = opts.DataDir
	}
	confFile := opts.ConfigFile
	if confFile == "" {
		confFile = filepath.Join(dataDir, configFileName)
	}
	if file, err := os.Open(confFile); err == nil {
		err = v.ReadConfig(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %v", confFile, err)
		}
	} else if opts.ConfigFile != "" {
		return nil, err
	}

	opts.apply(v)

	config := &Configuration{}
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if config.Chainstate.BatchSize <= 0 {
		return nil, fmt.Errorf("chainstate.batchsize must be positive, got %d", config.Chainstate.BatchSize)
	}
	return config, nil
}

// InitConfig is LoadConfig for process start-up, where a bad configuration
// is fatal.
func InitConfig(args []string) *Configuration {
	return must(LoadConfig(args)).(*Configuration)
}

func (c *Configuration) ChainstateDir() string {
	return filepath.Join(c.DataDir, "chainstate")
}
