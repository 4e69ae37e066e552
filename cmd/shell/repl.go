package shell

import (
	"encoding/json"
	"fmt"
	"github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/lib/store"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// shellCommands lists every shell command for tab completion and help
var shellCommands = []string{
	"get", "getInt", "set", "setInt", "del", "rmRange",
	"scan", "batch", "info", "use", "help", "exit", "quit",
}

const helpText = `Commands:
  get <key>              read the value for a key
  getInt <key>           read the value for a key as an integer
  set <key> <value>      set the value for a key
  setInt <key> <value>   set the integer value for a key
  del <key>              delete a key
  rmRange <low> <high>   delete every key in [low, high]
  scan [prefix] [limit]  list keys in ascending order
  batch <k=v> [k=v ...]  atomically set multiple pairs
  info                   print store metadata
  use <domain>           switch the current domain
  help                   show this help
  exit                   leave the shell`

func runShell(_ *cobra.Command, _ []string) error {
	domain := util.GetDomain()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt(domain),
		HistoryFile:     historyPath(),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("cellar shell (v%s), type 'help' for the available commands\n", util.Version)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C clears the line, Ctrl+D exits
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" || fields[0] == "quit" {
			break
		}

		if fields[0] == "use" {
			if len(fields) != 2 {
				fmt.Println("usage: use <domain>")
				continue
			}
			domain = fields[1]
			rl.SetPrompt(prompt(domain))
			continue
		}

		if err := execute(domain, fields); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	return nil
}

// execute runs a single shell command against the current domain
func execute(domain string, fields []string) error {
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <key>")
		}
		value, found, err := rpcStore.Get(domain, args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("(not found)")
		} else {
			fmt.Println(string(value))
		}
	case "getInt":
		if len(args) != 1 {
			return fmt.Errorf("usage: getInt <key>")
		}
		value, found, err := rpcStore.GetInt(domain, args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("(not found)")
		} else {
			fmt.Println(value)
		}
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: set <key> <value>")
		}
		// Everything after the key is the value
		value := strings.Join(args[1:], " ")
		if err := rpcStore.Put(domain, args[0], []byte(value)); err != nil {
			return err
		}
		fmt.Println("ok")
	case "setInt":
		if len(args) != 2 {
			return fmt.Errorf("usage: setInt <key> <value>")
		}
		value, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("value must be an integer: %v", err)
		}
		if err := rpcStore.PutInt(domain, args[0], value); err != nil {
			return err
		}
		fmt.Println("ok")
	case "del":
		if len(args) != 1 {
			return fmt.Errorf("usage: del <key>")
		}
		if err := rpcStore.Remove(domain, args[0]); err != nil {
			return err
		}
		fmt.Println("ok")
	case "rmRange":
		if len(args) != 2 {
			return fmt.Errorf("usage: rmRange <low> <high>")
		}
		if err := rpcStore.RemoveRange(domain, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("ok")
	case "scan":
		prefix := ""
		limit := 0
		if len(args) > 0 {
			prefix = args[0]
		}
		if len(args) > 1 {
			var err error
			if limit, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("limit must be an integer: %v", err)
			}
		}
		keys, err := rpcStore.Scan(domain, prefix, limit)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		fmt.Printf("(%d key(s))\n", len(keys))
	case "batch":
		if len(args) == 0 {
			return fmt.Errorf("usage: batch <key=value> [key=value ...]")
		}
		pairs := make([]store.Pair, len(args))
		for i, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("invalid pair %q (expected key=value)", arg)
			}
			pairs[i] = store.Pair{Key: key, Value: []byte(value)}
		}
		if err := rpcStore.PutBatch(domain, pairs); err != nil {
			return err
		}
		fmt.Printf("ok (%d pair(s))\n", len(pairs))
	case "info":
		info, err := rpcStore.GetStoreInfo()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "help":
		fmt.Println(helpText)
	default:
		return fmt.Errorf("unknown command %q, type 'help' for the available commands", cmd)
	}

	return nil
}

// prompt renders the shell prompt with the current domain
func prompt(domain string) string {
	return fmt.Sprintf("cellar:%s> ", domain)
}

// completer creates a readline completer for tab completion
func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(shellCommands))
	for _, cmd := range shellCommands {
		items = append(items, readline.PcItem(cmd))
	}
	return readline.NewPrefixCompleter(items...)
}

// historyPath returns the history file location, empty disables history
func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cellar_history")
}
