package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/internal/registry"
	"github.com/bnema/tarpush/internal/server"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	headColor = color.New(color.FgCyan, color.Bold)
)

func printResult(w io.Writer, file string, size int64, res *domain.PipelineResult) {
	headColor.Fprintf(w, "%s (%s)\n", file, humanize.IBytes(uint64(max(size, 0))))

	for _, img := range res.LoadedImages {
		fmt.Fprintf(w, "  loaded  %s\n", img)
	}
	for _, o := range res.PushedImages {
		if o.Status == domain.PushSuccess {
			okColor.Fprintf(w, "  pushed  %s (%s)\n", o.LocalName, o.Type)
			continue
		}
		failColor.Fprintf(w, "  failed  %s (%s): %s\n", o.LocalName, o.Type, o.Error)
	}
	for _, msg := range res.Warnings {
		warnColor.Fprintf(w, "  warning %s\n", msg)
	}
	for _, msg := range res.Errors {
		failColor.Fprintf(w, "  error   %s\n", msg)
	}

	summary := res.Summary()
	switch {
	case len(res.LoadedImages) == 0 || res.SuccessCount() == 0:
		failColor.Fprintln(w, summary)
	case res.FailureCount() > 0:
		warnColor.Fprintln(w, summary)
	default:
		okColor.Fprintln(w, summary)
	}
}

func printStatus(w io.Writer, st server.StatusReport) {
	headColor.Fprintln(w, "Docker daemon")
	if st.DockerDaemon.Accessible {
		okColor.Fprintf(w, "  reachable, version %s\n", st.DockerDaemon.Version)
	} else {
		failColor.Fprintln(w, "  not reachable")
	}

	headColor.Fprintln(w, "Registry")
	if st.RegistryInfo.Accessible {
		okColor.Fprintf(w, "  %s reachable\n", st.RegistryInfo.URL)
	} else {
		failColor.Fprintf(w, "  %s not reachable\n", st.RegistryInfo.URL)
	}

	headColor.Fprintf(w, "Local images (%d)\n", len(st.LocalImages))
	for _, img := range st.LocalImages {
		fmt.Fprintf(w, "  %-50s %s  %10s  %s\n", img.Name, img.ID, img.Size, img.Created)
	}
}

func printCatalog(w io.Writer, url string, repos []registry.Repository) {
	headColor.Fprintf(w, "%s (%d repositories)\n", url, len(repos))
	for _, r := range repos {
		fmt.Fprintf(w, "  %s\n", r.Name)
		for _, t := range r.Tags {
			fmt.Fprintf(w, "    %s\n", t)
		}
	}
}
