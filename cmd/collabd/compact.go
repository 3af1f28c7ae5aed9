package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/persistence"
)

var compactCmd = &cobra.Command{
	Use:   "compact OBJECT_ID",
	Short: "Collapse one document's update log into a single flushed state (spec §4.1.3)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg)

		objectID := args[0]
		store, err := persistence.Open(filepath.Join(cfg.DataDir, "collabd.db"), persistence.OpenOptions{AutoRepair: cfg.AutoRepair})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		uid := []byte(cfg.UID)
		workspaceID := []byte(cfg.WorkspaceID)

		doc := crdt.NewDoc(cfg.ClientID, objectID)
		applied, err := store.LoadDoc(uid, workspaceID, []byte(objectID), doc)
		if err != nil {
			return fmt.Errorf("load doc %q: %w", objectID, err)
		}
		if err := store.FlushDoc(uid, workspaceID, []byte(objectID), doc); err != nil {
			return fmt.Errorf("flush doc %q: %w", objectID, err)
		}

		fmt.Printf("compacted %q: collapsed %d pending updates\n", objectID, applied)
		return nil
	},
}
