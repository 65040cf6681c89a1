// Package sloghooks logs matcache hook events through log/slog, with
// sampling for the chatty ones and key redaction for the rest.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/matcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery   uint64
	InvalidateEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr   atomic.Uint64
	invalidateCtr atomic.Uint64
}

var _ matcache.Hooks = (*Hooks)(nil)

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

func (h *Hooks) EntrySelfHealed(storageKey string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("matcache.entry_self_healed",
		"key", h.redact(storageKey))
}

func (h *Hooks) ProviderDegraded(op string, keys int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("matcache.provider_degraded",
		"op", op,
		"keys", keys,
		"err", err)
}

func (h *Hooks) EntryInvalidated(storageKey string, deleted bool) {
	if h.l == nil || !sample(h.opts.InvalidateEvery, &h.invalidateCtr) {
		return
	}
	h.l.Debug("matcache.entry_invalidated",
		"key", h.redact(storageKey),
		"deleted", deleted)
}

func (h *Hooks) CascadeQueued(subjectType, pk, version string) {
	if h.l == nil {
		return
	}
	h.l.Debug("matcache.cascade_queued",
		"type", subjectType,
		"pk", pk,
		"version", version)
}
