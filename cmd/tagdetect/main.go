// tagdetect - command line companion for tagserver
//
// Usage:
//
//	tagdetect [-server URL] detect image.png
//	tagdetect [-server URL] ping
//	tagdetect render -family tag36h11 -id 7 -size 400 -margin 50 -out tag7.png
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/teslashibe/tagserver/internal/config"
	"github.com/teslashibe/tagserver/pkg/client"
	"github.com/teslashibe/tagserver/pkg/detection"
)

func main() {
	server := flag.String("server", config.ServerURL(), "tagserver base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	wait := flag.Duration("wait", 0, "Wait up to this long for the server to answer /ping")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+*wait)
	defer cancel()

	c := client.New(*server, client.WithTimeout(*timeout))

	if *wait > 0 {
		waitCtx, waitCancel := context.WithTimeout(ctx, *wait)
		err := c.WaitReady(waitCtx, 250*time.Millisecond)
		waitCancel()
		if err != nil {
			fail(err)
		}
	}

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "ping":
		err = c.Ping(ctx)
		if err == nil {
			fmt.Println("pong")
		}
	case "detect":
		err = detect(ctx, c, args)
	case "render":
		err = render(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func detect(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("detect: expected one image path")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	resp, err := c.Detect(ctx, filepath.Base(args[0]), data)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func render(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	family := fs.String("family", detection.DefaultConfig().Family, "Marker family")
	id := fs.Int("id", 0, "Marker id")
	size := fs.Int("size", 400, "Marker side in pixels")
	margin := fs.Int("margin", 50, "White margin in pixels")
	out := fs.String("out", "", "Output PNG path (default <family>_<id>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	img, err := detection.Render(*family, *id, *size, detection.Placement{Left: *margin, Top: *margin})
	if err != nil {
		return err
	}
	defer img.Close()

	data, err := detection.EncodePNG(img)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("%s_%d.png", *family, *id)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d)\n", path, img.Cols(), img.Rows())
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] ping|detect <image>|render [render flags]\n", os.Args[0])
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
