package playback

import (
	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/metrics"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*InactivityScheduler, error) {
		return NewInactivityScheduler(), nil
	})
	do.Provide(injector, func(i do.Injector) (*QueueManager, error) {
		inactivity := do.MustInvoke[*InactivityScheduler](i)
		rec := do.MustInvoke[metrics.Recorder](i)
		return NewQueueManager(inactivity, rec), nil
	})
	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		queues := do.MustInvoke[*QueueManager](i)
		inactivity := do.MustInvoke[*InactivityScheduler](i)
		openers := do.MustInvoke[audio.Openers](i)
		rec := do.MustInvoke[metrics.Recorder](i)
		return NewController(dc, queues, inactivity, openers, rec, cfg.InactivityTimeout()), nil
	})
	do.Provide(injector, func(i do.Injector) (*CommandHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		r := do.MustInvoke[*resolver.Resolver](i)
		controller := do.MustInvoke[*Controller](i)
		rec := do.MustInvoke[metrics.Recorder](i)
		return NewCommandHandler(cfg, dc, r, controller, rec), nil
	})
}
