package inspector_test

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tedsuo/ifrit"

	"metronome"
	"metronome/inspector"
)

var _ = Describe("Inspector", func() {
	var (
		manager *metronome.Manager
		handle  metronome.Handle
	)

	BeforeEach(func() {
		manager, handle = metronome.New(metronome.FPS(120))
	})

	AfterEach(func() {
		manager.Stop()
	})

	Describe("snapshot dumps", func() {
		var path string

		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "inspector")
			Ω(err).ShouldNot(HaveOccurred())
			path = filepath.Join(dir, "snapshot.json")
		})

		AfterEach(func() {
			os.RemoveAll(filepath.Dir(path))
		})

		It("writes the registry to disk when signaled", func() {
			member, err := metronome.NewMember(handle, 2)
			Ω(err).ShouldNot(HaveOccurred())
			defer member.Close()

			process := ifrit.Invoke(inspector.New(handle, path, syscall.SIGUSR2))
			process.Signal(syscall.SIGUSR2)
			Eventually(process.Wait()).Should(Receive(BeNil()))

			data, err := os.ReadFile(path)
			Ω(err).ShouldNot(HaveOccurred())

			var snap metronome.Snapshot
			Ω(json.Unmarshal(data, &snap)).Should(Succeed())
			Ω(snap.Manager).Should(Equal(manager.ID()))
			Ω(snap.Members).Should(HaveLen(1))
			Ω(snap.Members[0].SpeedFactor).Should(Equal(2))
		})

		It("exits without dumping on an unrelated signal", func() {
			process := ifrit.Invoke(inspector.New(handle, path, syscall.SIGUSR2))
			process.Signal(os.Interrupt)
			Eventually(process.Wait()).Should(Receive(BeNil()))

			_, err := os.Stat(path)
			Ω(os.IsNotExist(err)).Should(BeTrue())
		})
	})

	Describe("debug server", func() {
		const address = "127.0.0.1:29471"

		var process ifrit.Process

		BeforeEach(func() {
			process = ifrit.Invoke(inspector.NewServer(address, handle))
		})

		AfterEach(func() {
			process.Signal(os.Interrupt)
			Eventually(process.Wait()).Should(Receive(BeNil()))
		})

		It("serves health checks", func() {
			resp, err := http.Get("http://" + address + "/healthz")
			Ω(err).ShouldNot(HaveOccurred())
			defer resp.Body.Close()
			Ω(resp.StatusCode).Should(Equal(http.StatusOK))
		})

		It("serves the registry snapshot", func() {
			member, err := metronome.NewMember(handle, 3)
			Ω(err).ShouldNot(HaveOccurred())
			defer member.Close()

			resp, err := http.Get("http://" + address + "/snapshot")
			Ω(err).ShouldNot(HaveOccurred())
			defer resp.Body.Close()

			var snap metronome.Snapshot
			Ω(json.NewDecoder(resp.Body).Decode(&snap)).Should(Succeed())
			Ω(snap.Manager).Should(Equal(manager.ID()))
			Ω(snap.Members).Should(HaveLen(1))
			Ω(snap.Members[0].State).Should(Equal(metronome.StateRunning))
		})

		It("exposes prometheus metrics", func() {
			resp, err := http.Get("http://" + address + "/metrics")
			Ω(err).ShouldNot(HaveOccurred())
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(string(body)).Should(ContainSubstring("metronome_uptime_seconds"))
		})

		It("refuses snapshots once the manager is gone", func() {
			manager.Stop()

			resp, err := http.Get("http://" + address + "/snapshot")
			Ω(err).ShouldNot(HaveOccurred())
			defer resp.Body.Close()
			Ω(resp.StatusCode).Should(Equal(http.StatusServiceUnavailable))
		})
	})
})
