// Package bootstrap implements the self-update state machine that
// lets the updater replace its own executable mid-run: detect that the
// running binary itself is in the remote work set, reconstruct the
// replacement to a sibling path, swap it in with a rename pair that
// survives being killed mid-swap, and re-exec.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rednimgames/rose-updater/errs"
	"github.com/rednimgames/rose-updater/store"
)

// Phase names the self-update state machine's current state. These
// are recorded to the side database purely for diagnostics; the
// filesystem rename pair below is the only correctness mechanism.
type Phase string

const (
	PhaseInitial        Phase = "initial"
	PhaseCheckingSelf   Phase = "checking_self"
	PhaseReplacingSelf  Phase = "replacing_self"
	PhasePostSelfUpdate Phase = "post_self_update"
	PhaseSyncing        Phase = "syncing"
	PhaseDone           Phase = "done"
)

// PostSelfUpdateFlag is the internal CLI flag a self-replaced process
// is re-exec'd with, so it knows to skip CheckingSelf.
const PostSelfUpdateFlag = "--post-self-update"

// RecoverCrash implements the crash-recovery invariant: if
// "<name>.old" exists and "<name>" does not, the previous run was
// killed between the two renames of a self-update, and the old binary
// is renamed back into place. It must run before flag parsing, on
// every invocation, regardless of subcommand.
func RecoverCrash(exePath string) error {
	oldPath := exePath + ".old"

	_, oldErr := os.Stat(oldPath)
	_, curErr := os.Stat(exePath)

	if oldErr == nil && os.IsNotExist(curErr) {
		if err := os.Rename(oldPath, exePath); err != nil {
			return fmt.Errorf("bootstrap: recovering from interrupted self-update: %w", err)
		}
	}
	return nil
}

// ReplaceSelf swaps newExePath in as exePath: it renames the running
// executable aside to "<name>.old", then renames the replacement into
// place. If the process is killed between these two renames,
// RecoverCrash on the next invocation puts the old binary back.
//
// Two instances of the updater pointed at the same install root but
// different profiles can both reach this point for the same exePath.
// If exePath has already been renamed aside by a winner by the time
// this instance tries to move it, the first rename fails with
// os.IsNotExist; ReplaceSelf reports that as SelfUpdateRaceLost rather
// than a plain I/O error, so the caller can fall back to the winner's
// binary instead of treating the loss as a failed sync.
func ReplaceSelf(exePath, newExePath string) error {
	oldPath := exePath + ".old"

	if err := os.Rename(exePath, oldPath); err != nil {
		if os.IsNotExist(err) {
			_ = os.Remove(newExePath)
			return &errs.Error{Kind: errs.SelfUpdateRaceLost, Path: exePath, Cause: err}
		}
		return fmt.Errorf("bootstrap: renaming running executable aside: %w", err)
	}
	if err := os.Rename(newExePath, exePath); err != nil {
		return fmt.Errorf("bootstrap: renaming replacement into place: %w", err)
	}
	return nil
}

// CleanupAfterSelfUpdate best-effort removes the "<name>.old" sibling
// left behind by a completed self-update. Failure is not fatal: a
// leftover ".old" file is harmless, and RecoverCrash will not touch it
// once the real executable exists again.
func CleanupAfterSelfUpdate(exePath string) {
	_ = os.Remove(exePath + ".old")
}

// Relaunch re-execs newExePath with the post-self-update flag
// prepended to the original arguments. It returns as soon as the child
// has started; it neither waits for the child nor exits the current
// process.
func Relaunch(ctx context.Context, newExePath string, originalArgs []string) error {
	args := append([]string{PostSelfUpdateFlag}, originalArgs...)
	cmd := exec.CommandContext(ctx, newExePath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Start()
}

// RecordPhase writes the current phase to the diagnostic state
// database for log correlation. Losing this database never loses
// correctness.
func RecordPhase(db *store.DB, runID string, phase Phase) error {
	return db.Update(func(tx *store.Tx) error {
		if runID != "" {
			if err := tx.SetRunID(runID); err != nil {
				return err
			}
		}
		return tx.SetBootstrapPhase(string(phase))
	})
}
