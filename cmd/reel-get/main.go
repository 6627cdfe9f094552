package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"reelbot"
	"reelbot/async"
	"reelbot/generic"
	"reelbot/internal/fetch"
	"reelbot/internal/locate"
	"reelbot/util"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = reelbot.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "reel-get",
		Usage: "download a single instagram reel video",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded video to `DIR`",
			},
			&cli.StringFlag{
				Name:  "mirror-host",
				Value: reelbot.DefaultMirrorHost,
				Usage: "resolve reels through mirror `HOST`",
			},
			&cli.DurationFlag{
				Name:  "page-timeout",
				Value: locate.DefaultPageLoadTimeout,
				Usage: "give up loading a reel page after `DURATION`",
			},
		},
		Action: func(c *cli.Context) error {
			target := c.String("target")
			normalizer := reelbot.NewNormalizer(c.String("mirror-host"))
			locator := locate.New(locate.NewBrowserLoader(c.Duration("page-timeout")))
			for _, link := range c.Args().Slice() {
				if err := download(ctx, normalizer, locator, link, target); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		logger.Error(ctx.Err().Error())
		stop()
	}
}

func download(ctx context.Context, normalizer reelbot.Normalizer, locator *locate.Locator, link string, target string) error {
	logger := reelbot.Logger(ctx).Sugar()
	logger.Infof("Downloading from %s into %s", link, target)

	pageURL, err := normalizer.Normalize(link)
	if err != nil {
		return fmt.Errorf("not a usable reel link: %w", err)
	}

	logger.Info("Locating media...")
	mediaURL, err := locator.Locate(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("locate failed: %w", err)
	}

	logger.Info("Starting download...")
	bar := progressbar.DefaultBytes(1, "downloading")
	fetcher := fetch.New(fetch.WithProgress(func(downloaded, expected int64) {
		if expected > 0 && bar.GetMax64() != expected {
			bar.ChangeMax64(expected)
		}
		generic.Unwrap_(bar.Set64(downloaded))
	}))
	artifact, err := fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	targetPath := filepath.Join(target, targetFilename(pageURL, mediaURL))
	if err := moveFile(artifact, targetPath); err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	logger.Infof("Saved %s", targetPath)
	return nil
}

// targetFilename names the saved file after the reel ID, keeping the media
// URL's extension.
func targetFilename(pageURL, mediaURL string) string {
	reelID := strings.Trim(pageURL[strings.LastIndex(pageURL, "/reel/")+len("/reel/"):], "/")
	ext := util.ExtFromURLString(mediaURL)
	if ext == "" {
		ext = ".mp4"
	}
	return reelID + ext
}

// moveFile renames the artifact into place, falling back to copy-and-delete
// when the temp dir is on a different filesystem.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
