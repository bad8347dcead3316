package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit prints msg in red when returned from an action and sets the process exit code.
func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(Red(fmt.Sprintf(msg, args...)), code)
}
