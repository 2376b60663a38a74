package deps

import (
	"bytes"
	"context"
	"math/rand"
	"os"

	"github.com/evergreen-ci/cloak/model/dependency"
)

var wallpapers = []string{
	"https://cuckoo.sh/vmcloak/doge1.jpg",
	"https://cuckoo.sh/vmcloak/doge2.jpg",
	"https://cuckoo.sh/vmcloak/doge3.jpg",
}

type wallpaperOptions struct {
	Filepath string `settings:"filepath"`
}

// wallpaper sets a desktop background, either the local file given as
// wallpaper.filepath or a random stock picture.
type wallpaper struct {
	base
	opts wallpaperOptions
}

func newWallpaper() dependency.Logic { return &wallpaper{} }

func (w *wallpaper) Init(version string, settings map[string]string) error {
	if err := w.base.Init(version, settings); err != nil {
		return err
	}
	return dependency.DecodeSettings(settings, &w.opts)
}

func (w *wallpaper) Check(*dependency.RunContext) error {
	if w.opts.Filepath == "" {
		return nil
	}
	if _, err := os.Stat(w.opts.Filepath); err != nil {
		return dependency.WrapError(err, "wallpaper", "reading wallpaper file")
	}
	return nil
}

func (w *wallpaper) Run(ctx context.Context, rc *dependency.RunContext) error {
	profile, err := rc.Agent.Environ(ctx, "USERPROFILE")
	if err != nil {
		return dependency.WrapError(err, rc.Name, "finding the user profile")
	}
	guestPath := profile + `\Pictures\wall.jpg`

	if w.opts.Filepath != "" {
		err = rc.UploadFile(ctx, w.opts.Filepath, guestPath)
	} else {
		var contents []byte
		contents, err = rc.Fetcher.Download(ctx, wallpapers[rand.Intn(len(wallpapers))])
		if err != nil {
			return dependency.WrapError(err, rc.Name, "downloading wallpaper")
		}
		err = rc.Upload(ctx, guestPath, bytes.NewReader(contents))
	}
	if err != nil {
		return err
	}

	return rc.ExecOK(ctx, `reg add "HKEY_CURRENT_USER\Control Panel\Desktop" /v Wallpaper /t REG_SZ /d `+guestPath+` /f`)
}
