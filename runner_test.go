package metronome_test

import (
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tedsuo/ifrit"

	"metronome"
)

var _ = Describe("Runner", func() {
	It("runs a manager under ifrit supervision", func() {
		runner, handle := metronome.NewRunner(metronome.Config{Speed: metronome.FPS(120)})

		process := ifrit.Background(runner)
		Eventually(process.Ready()).Should(BeClosed())

		member, err := metronome.NewMember(handle, 1)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(member.WaitForTick()).Should(Succeed())

		process.Signal(os.Interrupt)
		Eventually(process.Wait()).Should(Receive(BeNil()))

		_, err = metronome.NewMember(handle, 1)
		Ω(err).Should(Equal(metronome.ErrManagerGone))
	})

	It("stops the manager on any signal", func() {
		runner, handle := metronome.NewRunner(metronome.Config{Speed: metronome.FPS(120)})

		process := ifrit.Invoke(runner)

		process.Signal(os.Kill)
		Eventually(process.Wait()).Should(Receive(BeNil()))

		_, err := metronome.NewMember(handle, 1)
		Ω(err).Should(Equal(metronome.ErrManagerGone))
	})
})
