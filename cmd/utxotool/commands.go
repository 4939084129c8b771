package main

import (
	"context"
	"fmt"

	"github.com/copernet/chainstate/model/utxo"
)

type statsCommand struct {
	tool *tool
}

func (cmd *statsCommand) Execute(args []string) error {
	coinsDB, err := cmd.tool.open()
	if err != nil {
		return err
	}
	defer coinsDB.Close()

	if heads := coinsDB.GetHeadBlocks(); len(heads) != 0 {
		return fmt.Errorf("chainstate has an unfinished flush from %s to %s", heads[1], heads[0])
	}
	stats, err := utxo.GetUTXOStats(coinsDB)
	if err != nil {
		return err
	}
	fmt.Printf("bestblock:          %s\n", stats.BestBlock)
	fmt.Printf("transactions:       %d\n", stats.Transactions)
	fmt.Printf("txouts:             %d\n", stats.TransactionOutputs)
	fmt.Printf("bogosize:           %d\n", stats.BogoSize)
	fmt.Printf("hash_serialized:    %s\n", stats.HashSerialized)
	fmt.Printf("muhash:             %s\n", stats.MuHash)
	fmt.Printf("disk_size:          %d\n", stats.DiskSize)
	fmt.Printf("total_amount:       %s\n", stats.TotalAmount)
	return nil
}

type headsCommand struct {
	tool *tool
}

func (cmd *headsCommand) Execute(args []string) error {
	coinsDB, err := cmd.tool.open()
	if err != nil {
		return err
	}
	defer coinsDB.Close()

	best := coinsDB.GetBestBlock()
	if best.IsNull() {
		fmt.Println("bestblock: none")
	} else {
		fmt.Printf("bestblock: %s\n", best)
	}
	heads := coinsDB.GetHeadBlocks()
	if len(heads) == 0 {
		return nil
	}
	fmt.Printf("unfinished flush\n  new tip: %s\n  old tip: %s\n", heads[0], heads[1])
	return nil
}

type upgradeCommand struct {
	tool *tool
}

func (cmd *upgradeCommand) Execute(args []string) error {
	coinsDB, err := cmd.tool.open()
	if err != nil {
		return err
	}
	defer coinsDB.Close()

	ctx, cancel := interruptContext(context.Background())
	defer cancel()
	if err := coinsDB.Upgrade(ctx); err != nil {
		return err
	}
	fmt.Println("upgrade complete")
	return nil
}
