package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skullboard/render"
	"skullboard/utils"

	"github.com/robfig/cron/v3"
)

const probeTimeout = 10 * time.Second

var errProbeDisabled = errors.New("render health probe is not configured")

// startScheduler starts the cron jobs.
func (b *Bot) startScheduler() error {
	if b.probe == nil || b.settings.HealthProbe == "" {
		utils.Logger.Info("render health probe disabled")
		return nil
	}
	b.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := b.cron.AddFunc(b.settings.HealthProbe, b.probeRender); err != nil {
		return fmt.Errorf("could not set up health probe job: %w", err)
	}
	b.cron.Start()
	return nil
}

// stopScheduler stops the cron jobs.
func (b *Bot) stopScheduler() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
}

// CheckRender asks the render service whether its last render succeeded.
func (b *Bot) CheckRender(ctx context.Context) (bool, error) {
	if b.probe == nil {
		return false, errProbeDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return b.probe.Check(ctx, render.HealthServiceName)
}

// probeRender reports render service state changes to the admin channel.
func (b *Bot) probeRender() {
	ok, err := b.CheckRender(context.Background())
	if err != nil {
		ok = false
	}
	if b.healthy != nil && *b.healthy == ok {
		return
	}
	first := b.healthy == nil
	b.healthy = &ok

	switch {
	case err != nil:
		utils.Warn("Bot", "RenderProbe", fmt.Sprintf("render service at %s is unreachable: %v", b.probe.GetServerAddress(), err))
	case !ok:
		utils.Warn("Bot", "RenderProbe", "render service reports failing renders")
	case !first:
		utils.Info("Bot", "RenderProbe", "render service recovered")
	}
}
