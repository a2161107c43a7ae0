package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage resource locks",
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire [resource]",
	Short: "Acquire a lock on a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockAcquire,
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active locks",
	RunE:  runLockList,
}

var lockExtendCmd = &cobra.Command{
	Use:   "extend [resource]",
	Short: "Extend a held lock's lease",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockExtend,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock [resource]",
	Short: "Release a lock on a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

var (
	lockHolder string
	lockTTLSec int
	lockForce  bool
	lockPrefix string
	extendSec  int
)

func init() {
	lockCmd.AddCommand(lockAcquireCmd, lockListCmd, lockExtendCmd)

	lockAcquireCmd.Flags().StringVar(&lockHolder, "holder", "", "Identity acquiring the lock (required)")
	lockAcquireCmd.Flags().IntVar(&lockTTLSec, "ttl", 0, "Lease duration in seconds (default server TTL)")
	lockAcquireCmd.Flags().BoolVar(&lockForce, "force", false, "Take the lock even if held by another identity")
	lockAcquireCmd.MarkFlagRequired("holder")

	lockListCmd.Flags().StringVar(&lockPrefix, "prefix", "", "Only list locks whose resource has this prefix")

	lockExtendCmd.Flags().StringVar(&lockHolder, "holder", "", "Identity holding the lock (required)")
	lockExtendCmd.Flags().IntVar(&extendSec, "add", 300, "Additional seconds to add to the lease")
	lockExtendCmd.MarkFlagRequired("holder")

	unlockCmd.Flags().StringVar(&lockHolder, "holder", "", "Identity releasing the lock (required)")
	unlockCmd.MarkFlagRequired("holder")
}

func runLockAcquire(cmd *cobra.Command, args []string) error {
	req := map[string]interface{}{
		"resource": args[0],
		"holder":   lockHolder,
		"ttl_sec":  lockTTLSec,
		"force":    lockForce,
	}

	var lock models.Lock
	if err := apiPost("/locks/acquire", req, &lock); err != nil {
		return err
	}

	fmt.Printf("Locked %s for %s (expires %s)\n",
		lock.Resource, lock.Holder, lock.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func runLockList(cmd *cobra.Command, args []string) error {
	path := "/locks"
	if lockPrefix != "" {
		path += "?prefix=" + lockPrefix
	}

	var locks []models.Lock
	if err := apiGet(path, &locks); err != nil {
		return err
	}

	if len(locks) == 0 {
		fmt.Println("No active locks.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tHOLDER\tREMAINING")
	now := time.Now()
	for _, l := range locks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", l.Resource, l.Holder, l.Remaining(now).Round(time.Second))
	}
	return w.Flush()
}

func runLockExtend(cmd *cobra.Command, args []string) error {
	req := map[string]interface{}{
		"resource":       args[0],
		"holder":         lockHolder,
		"additional_sec": extendSec,
	}

	var lock models.Lock
	if err := apiPost("/locks/extend", req, &lock); err != nil {
		return err
	}

	fmt.Printf("Extended %s, now expires %s\n", lock.Resource, lock.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	req := map[string]interface{}{
		"resource": args[0],
		"holder":   lockHolder,
	}

	var result struct {
		Released bool `json:"released"`
	}
	if err := apiPost("/locks/release", req, &result); err != nil {
		return err
	}

	if result.Released {
		fmt.Printf("Released %s\n", args[0])
	} else {
		fmt.Printf("Not released: %s is not held by %s\n", args[0], lockHolder)
	}
	return nil
}
