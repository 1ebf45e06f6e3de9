package session

import (
	"os"
	"testing"

	"solens/host/logging"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}
