package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/whattherepo/whattherepo/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive configuration bootstrap",
	Long: `Set up credentials and backend connections interactively.

Secrets (the OpenAI API key and GitHub token) are read without echo and
stored in the OS keychain when one is available, falling back to the
config file. Connection strings go to ~/.whattherepo/config.yaml.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	fmt.Println("WhatTheRepo setup")
	fmt.Println()

	km := config.NewKeyringManager()
	keychainOK := km.IsAvailable()
	if keychainOK {
		fmt.Println("OS keychain detected, secrets will be stored there.")
	} else {
		fmt.Println("No OS keychain available, secrets will be stored in the config file.")
	}
	fmt.Println()

	fmt.Print("OpenAI API key (blank to keep current): ")
	apiKey, err := readSecret()
	if err != nil {
		return err
	}
	if apiKey != "" && !strings.HasPrefix(apiKey, "sk-") {
		return fmt.Errorf("OpenAI API keys start with sk-")
	}

	fmt.Print("GitHub token (blank to keep current): ")
	ghToken, err := readSecret()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	vectorDSN, err := prompt(reader, "Vector store DSN (postgres)", cfg.VectorStore.DSN)
	if err != nil {
		return err
	}
	martDriver, err := prompt(reader, "Mart driver (postgres or sqlite3)", cfg.Mart.Driver)
	if err != nil {
		return err
	}
	martDSN, err := prompt(reader, "Mart DSN", cfg.Mart.DSN)
	if err != nil {
		return err
	}
	redisAddr, err := prompt(reader, "Redis address (blank to disable caching)", cfg.Cache.RedisAddr)
	if err != nil {
		return err
	}

	if apiKey != "" {
		if keychainOK {
			if err := km.SaveAPIKey(apiKey); err != nil {
				return err
			}
			fmt.Println("  OpenAI key saved to keychain")
		} else {
			cfg.LLM.OpenAIKey = apiKey
		}
	}
	if ghToken != "" {
		if keychainOK {
			if err := km.SetForgeToken(ghToken); err != nil {
				return err
			}
			fmt.Println("  GitHub token saved to keychain")
		} else {
			cfg.Forge.Token = ghToken
		}
	}

	cfg.VectorStore.DSN = vectorDSN
	cfg.Mart.Driver = martDriver
	cfg.Mart.DSN = martDSN
	cfg.Cache.RedisAddr = redisAddr

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	path := filepath.Join(homeDir, ".whattherepo", "config.yaml")
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Next: wtr ingest owner/repo")
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func prompt(reader *bufio.Reader, label, current string) (string, error) {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}
