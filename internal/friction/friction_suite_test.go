package friction_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFriction(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Friction Suite")
}
