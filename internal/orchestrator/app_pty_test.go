package orchestrator

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repldoc/internal/example"
	"repldoc/internal/expression"
	"repldoc/internal/protocol"
	"repldoc/internal/repl"
)

// fixtureRepl answers queries the way the Nix REPL frames its results:
// a clear sequence, the result, a blank line and a closing clear sequence.
// "forever" keeps drawing prompts after its result.
const fixtureRepl = `stty -echo
printf '\r\033[K'
while IFS= read -r line; do
  case "$line" in
    '1 + 1') printf '\r\033[K2\n\n\r\033[K' ;;
    'x = 3') printf '\r\033[K\r\033[K' ;;
    'x') printf '\r\033[K\033[35;1m3\033[0m\n\n\r\033[K' ;;
    'forever') printf '\r\033[Kforever\n\n\r\033[K'; while :; do printf 'nix-repl> '; done ;;
    *) printf '\r\033[Kerror: undefined variable\n\n\r\033[K' ;;
  esac
done
`

func requireShellPTY(t *testing.T) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	_ = tty.Close()
	_ = ptmx.Close()
	for _, binary := range []string{"sh", "stty"} {
		if _, err := exec.LookPath(binary); err != nil {
			t.Skipf("%s not found", binary)
		}
	}
}

func runFixture(t *testing.T, examples []example.Example) (*recordingReporter, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	driver := repl.NewDriver(repl.Options{Interpreter: "sh", Args: []string{"-c", fixtureRepl}})
	reporter := &recordingReporter{}
	err := NewApp(driver, expression.NewEvaluator([]string{"true"}), reporter, protocol.ResyncOnMismatch).Run(ctx, examples)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, driver.Live())
	return reporter, err
}

func TestApp_PTYPass(t *testing.T) {
	requireShellPTY(t)

	for run := 0; run < 10; run++ {
		a := example.NewID("doc.md", 4)
		b := example.NewID("doc.md", 12)
		reporter, err := runFixture(t, []example.Example{
			replExample(t, a, "nix-repl> 1 + 1\n2\n"),
			replExample(t, b, "nix-repl> x = 3\n\nnix-repl> x\n3\n"),
		})
		require.NoError(t, err, "run %d", run)
		assert.ElementsMatch(t, []string{"PASS: doc.md:4", "PASS: doc.md:12"}, reporter.Lines())
	}
}

func TestApp_PTYOutputAfterFinalClear(t *testing.T) {
	requireShellPTY(t)

	for run := 0; run < 10; run++ {
		id := example.NewID("doc.md", 1)
		reporter, err := runFixture(t, []example.Example{replExample(t, id, "nix-repl> forever\nforever\n")})
		require.NoError(t, err, "run %d", run)
		assert.Equal(t, []string{"PASS: doc.md:1"}, reporter.Lines())
	}
}

func TestApp_PTYMismatch(t *testing.T) {
	requireShellPTY(t)

	id := example.NewID("doc.md", 7)
	reporter, err := runFixture(t, []example.Example{replExample(t, id, "nix-repl> 1 + 1\n3\n")})
	require.Error(t, err)
	assert.Equal(t, "doc.md:7\n\nActual:\n\n```\n2\n```\n\nExpected:\n\n```\n3\n```", err.Error())
	assert.Empty(t, reporter.Lines())
}
