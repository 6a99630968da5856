// Command ckv runs one operation against a store directory.
//
//	ckv [-config ckv.yaml] [-dir path] [-debug] put <key> <value>
//	ckv ... get <key> | del <key> | scan <k1> <k2> | reset | stats
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"lsmkv"
	"lsmkv/utils"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dir := flag.String("dir", "", "store directory, overrides work_dir from the config")
	debug := flag.Bool("debug", false, "development logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [flags] put k v | get k | del k | scan k1 k2 | reset | stats\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opt, err := loadOptions(*configPath, *dir)
	if err != nil {
		logger.Fatal("load options", zap.Error(err))
	}
	opt.Logger = logger

	db, err := lsmkv.Open(opt)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	runErr := run(db, flag.Args())
	if err := db.Close(); err != nil {
		logger.Error("close store", zap.Error(err))
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadOptions(configPath, dir string) (*utils.Options, error) {
	opt := utils.DefaultOptions(dir)
	if configPath != "" {
		var err error
		if opt, err = utils.LoadOptions(configPath); err != nil {
			return nil, err
		}
		if dir != "" {
			opt.WorkDir = dir
		}
	}
	return opt, nil
}

func run(db lsmkv.Store, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "put":
		if len(args) != 2 {
			return errors.New("put needs a key and a value")
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		return db.Put(key, args[1])
	case "get":
		if len(args) != 1 {
			return errors.New("get needs a key")
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		v, err := db.Get(key)
		if err != nil {
			return err
		}
		fmt.Println(v)
	case "del":
		if len(args) != 1 {
			return errors.New("del needs a key")
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		ok, err := db.Delete(key)
		if err != nil {
			return err
		}
		fmt.Println(ok)
	case "scan":
		if len(args) != 2 {
			return errors.New("scan needs two keys")
		}
		k1, err := parseKey(args[0])
		if err != nil {
			return err
		}
		k2, err := parseKey(args[1])
		if err != nil {
			return err
		}
		kvs, err := db.Scan(k1, k2)
		if err != nil {
			return err
		}
		for _, kv := range kvs {
			fmt.Printf("%d\t%s\n", kv.Key, kv.Value)
		}
	case "reset":
		return db.Reset()
	case "stats":
		out, err := yaml.Marshal(db.Stats())
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
	return nil
}

func parseKey(s string) (uint64, error) {
	key, err := strconv.ParseUint(s, 10, 64)
	return key, errors.Wrapf(err, "bad key %q", s)
}
