package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errPushIncomplete = errors.New("not every image was pushed")

func NewPushCommand(c *cliContext) *cobra.Command {
	var keep bool

	pushCmd := &cobra.Command{
		Use:   "push <image.tar>",
		Short: "Load a docker image archive and push its images to the registry",
		Long: `Load a docker image archive into the local engine, tag every image under the
registry host with its own tag and with latest, and push both.
The archive is deleted afterwards unless --keep is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}

			path := args[0]
			if keep {
				if err := a.PrepareUploadDir(); err != nil {
					return err
				}
				path = filepath.Join(a.Config.General.UploadDir, uuid.NewString()+".tar")
				if err := copyFile(args[0], path); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := a.Pipeline.Run(ctx, path)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), filepath.Base(args[0]), info.Size(), res)

			if res.SuccessCount() == 0 || res.FailureCount() > 0 {
				return errPushIncomplete
			}
			return nil
		},
	}

	pushCmd.Flags().BoolVarP(&keep, "keep", "k", false, "keep the archive (the pipeline runs on a copy)")
	return pushCmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
