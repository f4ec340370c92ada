package fan_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFan(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fan Suite")
}
