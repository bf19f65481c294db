package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
)

// Execute runs scorectl with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	return execute(NewRootCommand(), args, stdout, stderr)
}

func execute(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}
	f.Error(err)
	return GetExitCode(err)
}

// errorCode names err for output: the application error code when there
// is one, otherwise a generic command error.
func errorCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Code)
	}
	return "COMMAND_ERROR"
}
