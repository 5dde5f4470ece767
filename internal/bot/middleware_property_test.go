// Property-based tests for the operator and whitelist checks.
package bot

import (
	"slices"
	"testing"

	"pgregory.net/rapid"

	"queuebot/internal/config"
)

// TestOperatorCheckProperty: a user passes the operator check if and only if
// their id is listed in admin.ids.
func TestOperatorCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		operatorIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(t, "operatorIDs")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: operatorIDs}}

		known := operatorIDs[rapid.IntRange(0, len(operatorIDs)-1).Draw(t, "knownIndex")]
		if !cfg.IsAdmin(known) {
			t.Fatalf("listed operator %d rejected, operators=%v", known, operatorIDs)
		}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		if cfg.IsAdmin(userID) != slices.Contains(operatorIDs, userID) {
			t.Fatalf("operator check mismatch for %d, operators=%v", userID, operatorIDs)
		}
	})
}

// TestWhitelistProperty: with a non-empty whitelist a group chat is allowed
// if and only if it is listed; an empty whitelist allows every chat.
func TestWhitelistProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatIDs := rapid.SliceOfN(rapid.Int64Range(-1000000000, -1), 0, 10).Draw(t, "chatIDs")
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chatIDs}}

		chatID := rapid.Int64Range(-1000000000, -1).Draw(t, "chatID")
		want := len(chatIDs) == 0 || slices.Contains(chatIDs, chatID)
		if cfg.IsChatAllowed(chatID) != want {
			t.Fatalf("whitelist mismatch for %d, whitelist=%v, want %v", chatID, chatIDs, want)
		}

		if len(chatIDs) > 0 {
			listed := chatIDs[rapid.IntRange(0, len(chatIDs)-1).Draw(t, "listedIndex")]
			if !cfg.IsChatAllowed(listed) {
				t.Fatalf("listed chat %d rejected", listed)
			}
		}
	})
}
