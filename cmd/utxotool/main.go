// utxotool inspects and maintains a chainstate directory.
package main

import (
	"fmt"
	"os"

	"github.com/copernet/chainstate/conf"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/utxo"
	"github.com/copernet/chainstate/persist/db"
	"github.com/jessevdk/go-flags"
)

type tool struct {
	cfg *conf.Configuration
}

// open returns the coin database described by the configuration.
func (t *tool) open() (*utxo.CoinsDB, error) {
	do := &db.DBOption{
		FilePath:       t.cfg.ChainstateDir(),
		DbType:         t.cfg.Chainstate.DbType,
		CacheSize:      t.cfg.Chainstate.CacheSize,
		Wipe:           t.cfg.Chainstate.Wipe,
		DontObfuscate:  t.cfg.Chainstate.DontObfuscate,
		ForceCompactdb: t.cfg.Chainstate.ForceCompact,
	}
	coinsDB, err := utxo.NewCoinsDB(do, t.cfg.Chainstate.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("open chainstate %s: %v", do.FilePath, err)
	}
	return coinsDB, nil
}

func main() {
	cfg, err := conf.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := log.InitLogger(cfg.DataDir, cfg.Log.Level, cfg.Log.Module); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	t := &tool{cfg: cfg}
	parser := flags.NewParser(new(conf.Opts), flags.HelpFlag|flags.PassDoubleDash)
	parser.AddCommand("stats", "Print UTXO set statistics",
		"Walks every stored coin and prints counts, amounts and set hashes.", &statsCommand{tool: t})
	parser.AddCommand("heads", "Print the best block and any interrupted flush",
		"Prints the best block marker, or both head markers when a flush did not complete.", &headsCommand{tool: t})
	parser.AddCommand("upgrade", "Convert per-transaction records to per-output coins",
		"Rewrites coins stored in the pre-per-output format. Safe to interrupt and rerun.", &upgradeCommand{tool: t})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		log.Error("utxotool: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
