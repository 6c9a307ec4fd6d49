package trajectory_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTrajectoryEndToEnd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Shooting-Method Trajectory Optimization End-to-End Suite")
}
