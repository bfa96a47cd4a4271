package mp

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestMpScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "mp scenarios suite")
}
