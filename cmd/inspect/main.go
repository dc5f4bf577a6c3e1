package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Standalone viewer for the BadgerDB store. Run it against a stopped server
// (or a copy of the data directory) to inspect what the repositories wrote.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Key prefix to scan (msg:, pm:, user:, friend:, kick:, ban:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	color.Cyan.Printf("Scanning %s with prefix %q\n\n", *dbPath, *prefix)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Secondary indexes hold raw pointers, not records
			if strings.HasPrefix(key, "friendid:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, describe(key, v)})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Green.Printf("\n%d entries\n", count)
}

// Local views of the stored records, tagged like the repository disk types.
type messageView struct {
	Username string    `json:"username"`
	Content  string    `json:"content"`
	IsSystem bool      `json:"is_system"`
	At       time.Time `json:"at"`
}

type privateMessageView struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type userView struct {
	IsMod     bool      `json:"is_mod"`
	CreatedAt time.Time `json:"created_at"`
}

type friendshipView struct {
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// describe renders a value according to its key family. Unknown or
// undecodable values fall back to a truncated raw dump instead of aborting
// the whole scan.
func describe(key string, value []byte) string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m messageView
		if err := json.Unmarshal(value, &m); err == nil {
			tag := ""
			if m.IsSystem {
				tag = " [system]"
			}
			return fmt.Sprintf("%s  %-12s  %s%s",
				m.At.Format("2006-01-02 15:04:05"), m.Username, truncate(m.Content, 60), tag)
		}
	case strings.HasPrefix(key, "pm:"):
		var m privateMessageView
		if err := json.Unmarshal(value, &m); err == nil {
			return fmt.Sprintf("%s  %s -> %s  %s",
				m.At.Format("2006-01-02 15:04:05"), m.From, m.To, truncate(m.Content, 60))
		}
	case strings.HasPrefix(key, "user:"):
		var u userView
		if err := json.Unmarshal(value, &u); err == nil {
			return fmt.Sprintf("mod=%t created=%s",
				u.IsMod, u.CreatedAt.Format("2006-01-02"))
		}
	case strings.HasPrefix(key, "friend:"):
		var f friendshipView
		if err := json.Unmarshal(value, &f); err == nil {
			return fmt.Sprintf("%s  %s -> %s  created=%s",
				f.Status, f.Sender, f.Receiver, f.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return truncate(string(value), 80)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// Corrupted value log needs one writable open to truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
