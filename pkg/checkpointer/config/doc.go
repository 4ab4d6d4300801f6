/*
Package config loads checkpointer settings from YAML or JSON.

# Overview

Config wraps a map[string]any and exposes typed accessors that return a
default when a key is missing or has the wrong type. Keys may be dotted
paths into nested maps, so "store.backend" reads

	store:
	  backend: sqlite

Settings is the decoded, validated form of a Config. It knows how to open
the configured store and build the encryptor, codec, and Manager options:

	cfg, err := config.FromFile("checkpoint.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	settings, err := config.Decode(cfg)
	if err != nil {
	    log.Fatal(err)
	}
	mgr, st, err := settings.Open(slog.Default())

# Keys

	store.backend            file | sqlite | memory (default file)
	store.path               directory (file) or database path (sqlite)
	store.slot               checkpoint slot name (default "checkpoint")
	codec                    json | yaml (default json)
	sort_fragments           bool, sort fragments by kind before encoding
	retry.max_attempts       storage attempts including the first (default 1)
	retry.initial_backoff    duration, e.g. "50ms"
	encryption.strategy      none | fixed | password (default none)
	encryption.key           fixed strategy key
	encryption.iv            fixed strategy IV
	encryption.password      password strategy secret
	encryption.kdf           pbkdf2 | argon2id
	encryption.iterations    pbkdf2 iterations
	encryption.cipher        aes-gcm | chacha20-poly1305

# Secrets

Key, IV, and password values are plain strings unless prefixed:

	env:NAME       read from environment variable NAME
	base64:DATA    standard base64
	hex:DATA       hexadecimal

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
