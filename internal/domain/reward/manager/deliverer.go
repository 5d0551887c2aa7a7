// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
	"github.com/ManuGH/playreward/internal/log"
)

// DefaultMailSenderID is the sender id stamped on offline reward mail.
const DefaultMailSenderID uint32 = 37688

// Outcome classifies how one staged grant ended.
type Outcome string

const (
	OutcomeDirect         Outcome = "direct"
	OutcomeMail           Outcome = "mail"
	OutcomeReputationOnly Outcome = "reputation_only"
	OutcomeSessionMissing Outcome = "session_missing"
	OutcomeRewardMissing  Outcome = "reward_missing"
)

// DeliveryStats counts grant outcomes of one delivery pass.
type DeliveryStats map[Outcome]int

// Total is the number of grants processed.
func (d DeliveryStats) Total() int {
	n := 0
	for _, v := range d {
		n += v
	}
	return n
}

// DeliveryOptions tunes the delivery path.
type DeliveryOptions struct {
	ForceMail    bool
	MailSenderID uint32
}

// Deliverer executes staged grants against the world.
type Deliverer struct {
	world   ports.World
	mail    ports.MailQueue
	catalog *Catalog
	texts   ports.Localizer
	opts    DeliveryOptions
	logger  zerolog.Logger
}

// NewDeliverer creates a deliverer.
func NewDeliverer(world ports.World, mail ports.MailQueue, catalog *Catalog, texts ports.Localizer, opts DeliveryOptions) *Deliverer {
	d := &Deliverer{
		world:   world,
		mail:    mail,
		catalog: catalog,
		texts:   texts,
		logger:  log.WithComponent("reward.deliver"),
	}
	d.SetOptions(opts)
	return d
}

// SetOptions replaces the delivery options.
func (d *Deliverer) SetOptions(opts DeliveryOptions) {
	if opts.MailSenderID == 0 {
		opts.MailSenderID = DefaultMailSenderID
	}
	d.opts = opts
}

// Deliver processes every staged grant. Failures never abort the pass.
func (d *Deliverer) Deliver(ctx context.Context, pending *model.PendingGrants) DeliveryStats {
	stats := make(DeliveryStats)
	logger := log.WithContext(ctx, d.logger)

	pending.Each(func(id model.SessionID, rewards []model.RewardID) {
		s, ok, err := d.world.Session(ctx, id)
		if err != nil || !ok {
			ev := logger.Warn().Uint64(log.FieldSessionID, uint64(id)).Int(log.FieldCount, len(rewards))
			if err != nil {
				ev = ev.Err(err)
			}
			ev.Msg("session not reachable, dropping its grants")
			stats[OutcomeSessionMissing] += len(rewards)
			return
		}

		for _, rid := range rewards {
			def, ok := d.catalog.Get(rid)
			if !ok {
				logger.Debug().Uint64(log.FieldSessionID, uint64(id)).Uint32(log.FieldRewardID, uint32(rid)).Msg("reward removed before delivery")
				stats[OutcomeRewardMissing]++
				continue
			}
			stats[d.deliverOne(ctx, logger, s, def)]++
		}
	})
	return stats
}

func (d *Deliverer) deliverOne(ctx context.Context, logger zerolog.Logger, s model.Session, def model.Definition) Outcome {
	threshold := d.texts.Duration(s.Locale, def.Threshold)

	for _, rep := range def.Reputations {
		if err := d.world.SetReputation(ctx, s.ID, rep); err != nil {
			logger.Warn().Err(err).
				Uint64(log.FieldSessionID, uint64(s.ID)).
				Uint32(log.FieldRewardID, uint32(def.ID)).
				Uint32(log.FieldFactionID, rep.FactionID).
				Msg("reputation grant failed")
		}
	}

	if !def.HasItems() {
		d.notify(ctx, logger, s, d.texts.Text(s.Locale, ports.TextRewardedInGame, threshold))
		return OutcomeReputationOnly
	}

	if d.opts.ForceMail {
		d.mailItems(ctx, logger, s, def.ID, def.Items, threshold)
		d.notify(ctx, logger, s, d.texts.Text(s.Locale, ports.TextRewardedMail, threshold))
		return OutcomeMail
	}

	fits, err := d.world.CanStore(ctx, s.ID, def.Items)
	if err != nil {
		logger.Warn().Err(err).Uint64(log.FieldSessionID, uint64(s.ID)).Msg("inventory check failed, sending by mail")
	}
	if err != nil || !fits {
		d.mailItems(ctx, logger, s, def.ID, def.Items, threshold)
		d.notify(ctx, logger, s, d.texts.Text(s.Locale, ports.TextNotEnoughSpace))
		return OutcomeMail
	}

	for i, item := range def.Items {
		if err := d.world.AddItem(ctx, s.ID, item); err != nil {
			logger.Warn().Err(err).
				Uint64(log.FieldSessionID, uint64(s.ID)).
				Uint32(log.FieldItemID, item.ItemID).
				Msg("direct item grant failed, sending remainder by mail")
			d.mailItems(ctx, logger, s, def.ID, def.Items[i:], threshold)
			if i == 0 {
				d.notify(ctx, logger, s, d.texts.Text(s.Locale, ports.TextNotEnoughSpace))
			} else {
				d.notify(ctx, logger, s, d.texts.Text(s.Locale, ports.TextPartlyDirect, threshold, i, len(def.Items)))
			}
			return OutcomeMail
		}
	}

	d.notify(ctx, logger, s, d.texts.Text(s.Locale, ports.TextRewardedInGame, threshold))
	return OutcomeDirect
}

func (d *Deliverer) mailItems(ctx context.Context, logger zerolog.Logger, s model.Session, rid model.RewardID, items []model.ItemGrant, threshold string) {
	subject := d.texts.Text(s.Locale, ports.TextMailSubject, threshold)
	body := d.texts.Text(s.Locale, ports.TextMailBody, s.Name, threshold)
	for _, item := range items {
		m := model.Mail{
			Receiver: s.Name,
			Subject:  subject,
			Body:     body,
			ItemID:   item.ItemID,
			Count:    item.Count,
			SenderID: d.opts.MailSenderID,
		}
		if err := d.mail.EnqueueMail(ctx, m); err != nil {
			logger.Error().Err(err).
				Uint64(log.FieldSessionID, uint64(s.ID)).
				Uint32(log.FieldRewardID, uint32(rid)).
				Uint32(log.FieldItemID, item.ItemID).
				Msg("offline mail enqueue failed")
		}
	}
}

// notify sends text line by line on the system channel.
func (d *Deliverer) notify(ctx context.Context, logger zerolog.Logger, s model.Session, text string) {
	for _, line := range strings.Split(text, "\n") {
		if err := d.world.SendSystemText(ctx, s.ID, line); err != nil {
			logger.Warn().Err(err).Uint64(log.FieldSessionID, uint64(s.ID)).Msg("notification failed")
			return
		}
	}
}
