// Command mediainfo prints what the server would report for media files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"mediastream/internal/httprange"
	"mediastream/internal/mediastore"
)

type info struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"modTime"`
	ContentType  string    `json:"contentType"`
	ContentRange string    `json:"contentRange,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func main() {
	root := flag.String("root", "./media", "media root directory")
	rangeHeader := flag.String("range", "", "Range header to resolve against each file")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: mediainfo [-root dir] [-range bytes=a-b] <name>...")
		os.Exit(1)
	}

	store, err := mediastore.NewDirStore(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed := false
	for _, name := range flag.Args() {
		out := describe(store, name, *rangeHeader)
		if out.Error != "" {
			failed = true
		}
		if err := enc.Encode(out); err != nil {
			panic(err)
		}
	}
	if failed {
		os.Exit(2)
	}
}

func describe(store *mediastore.Store, name, rangeHeader string) info {
	out := info{Name: name}
	m, err := store.Resolve(name)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Size, out.ModTime = m.Size, m.ModTime
	out.ContentType = store.DetectContentType(m)

	if rangeHeader != "" {
		rng, _, err := httprange.Parse(rangeHeader, m.Size)
		if err != nil {
			out.Error = err.Error()
			return out
		}
		out.ContentRange = rng.ContentRange()
	}
	return out
}
