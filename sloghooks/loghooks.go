// Package sloghooks logs cache events with log/slog. Keys are redacted
// (SHA-256 prefix by default) and noisy events can be sampled.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/asidecache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery      uint64
	MissEvery     uint64
	SelfHealEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr      atomic.Uint64
	missCtr     atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ asidecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(storageKey string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("asidecache.hit", "key", h.redact(storageKey))
}

func (h *Hooks) Miss(storageKey string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("asidecache.miss", "key", h.redact(storageKey))
}

func (h *Hooks) Bypass(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("asidecache.bypass",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Info("asidecache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) DetachedFailed(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("asidecache.detached_failed",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) DetachedDropped(op, storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Error("asidecache.detached_dropped",
		"op", op,
		"key", h.redact(storageKey))
}
