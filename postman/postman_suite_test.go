package postman

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestPostmanScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "postman scenarios suite")
}
