package conf

import (
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/viper"
)

type Opts struct {
	DataDir    string `long:"datadir" description:"specified program data dir"`
	ConfigFile string `short:"C" long:"conf" description:"path to a yaml configuration file"`
	DbType     string `long:"dbtype" description:"chainstate engine: leveldb, badger, bolt or memdb"`
	DbCache    int    `long:"dbcache" description:"engine cache size in bytes"`
	DbBatch    int    `long:"dbbatchsize" description:"maximum sub-batch size in bytes when flushing coins"`
	LogLevel   string `long:"loglevel" description:"log level"`
	NoObfs     bool   `long:"noobfuscate" description:"do not obfuscate a newly created chainstate"`
	Compact    bool   `long:"forcecompactdb" description:"compact the chainstate database on open"`
	Wipe       bool   `long:"wipe" description:"erase the chainstate database on open"`
}

// InitArgs parses args, ignoring options it does not know so that callers
// can share a command line with other parsers.
func InitArgs(args []string) (*Opts, error) {
	opts := new(Opts)
	parser := flags.NewParser(opts, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func (opts *Opts) apply(v *viper.Viper) {
	if opts.DataDir != "" {
		v.Set("DataDir", opts.DataDir)
	}
	if opts.DbType != "" {
		v.Set("Chainstate.DbType", opts.DbType)
	}
	if opts.DbCache > 0 {
		v.Set("Chainstate.CacheSize", opts.DbCache)
	}
	if opts.DbBatch > 0 {
		v.Set("Chainstate.BatchSize", opts.DbBatch)
	}
	if opts.LogLevel != "" {
		v.Set("Log.Level", opts.LogLevel)
	}
	if opts.NoObfs {
		v.Set("Chainstate.DontObfuscate", true)
	}
	if opts.Compact {
		v.Set("Chainstate.ForceCompact", true)
	}
	if opts.Wipe {
		v.Set("Chainstate.Wipe", true)
	}
}

func (opts *Opts) String() string {
	return fmt.Sprintf("datadir:%s dbtype:%s", opts.DataDir, opts.DbType)
}
