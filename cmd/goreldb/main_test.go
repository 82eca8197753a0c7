package main

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "repl"} {
		if !names[want] {
			t.Fatalf("expected %q subcommand to be registered", want)
		}
	}
}

func TestPersistentFlagDefaults(t *testing.T) {
	level, err := rootCmd.PersistentFlags().GetString("log-level")
	if err != nil {
		t.Fatalf("get log-level: %v", err)
	}
	if level != "info" {
		t.Fatalf("expected default log-level \"info\", got %q", level)
	}

	jsonOut, err := rootCmd.PersistentFlags().GetBool("log-json")
	if err != nil {
		t.Fatalf("get log-json: %v", err)
	}
	if jsonOut {
		t.Fatalf("expected default log-json false")
	}
}
