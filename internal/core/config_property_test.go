package core

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// Any chunk size above three validates; anything else is rejected.
func TestProperty_ChunkSizeValidation(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(-100, 10000).Draw(rt, "chunkSize")
		cfg := defaultGlobalConfig()
		cfg.Tree.ChunkSize = size

		err := cm.ValidateConfig(cfg)
		if size > 3 && err != nil {
			rt.Fatalf("chunk size %d rejected: %v", size, err)
		}
		if size <= 3 && err == nil {
			rt.Fatalf("chunk size %d accepted", size)
		}
	})
}

// Only the known gateway kinds validate.
func TestProperty_GatewayKindValidation(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())
	rapid.Check(t, func(rt *rapid.T) {
		kind := models.GatewayKind(rapid.StringMatching(`[a-z]{0,10}`).Draw(rt, "gateway"))
		cfg := defaultGlobalConfig()
		cfg.Bot.Gateway = kind

		err := cm.ValidateConfig(cfg)
		known := kind == models.GatewayTelegram || kind == models.GatewayFile || kind == models.GatewayConsole
		if known != (err == nil) {
			rt.Fatalf("gateway %q: known=%v err=%v", kind, known, err)
		}
	})
}
