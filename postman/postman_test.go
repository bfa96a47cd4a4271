package postman

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/nasa/YOGA-sub004/cmn"
)

const msgTypeGreeting int32 = 1

func newLocalPair() (*Server, *Server) {
	a, err := NewServer(0)
	Expect(err).NotTo(HaveOccurred())
	b, err := NewServer(1)
	Expect(err).NotTo(HaveOccurred())
	peers := []string{fmtAddr(a.Port()), fmtAddr(b.Port())}
	a.SetPeers(peers)
	b.SetPeers(peers)
	return a, b
}

func fmtAddr(port int) string {
	return "127.0.0.1:" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

var _ = Describe("Frame encoding", func() {
	It("round-trips forward flag, rank, type, and body", func() {
		var buf bytes.Buffer
		f := frame{forwardFlag: true, forwardRank: 7, messageType: 42, body: []byte("payload")}
		Expect(writeFrame(&buf, f)).To(Succeed())

		got, err := readFrame(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.forwardFlag).To(BeTrue())
		Expect(got.forwardRank).To(Equal(int32(7)))
		Expect(got.messageType).To(Equal(int32(42)))
		Expect(got.body).To(Equal([]byte("payload")))
	})
})

var _ = Describe("MailBox", func() {
	It("delivers frames FIFO per message type", func() {
		mb := NewMailBox()
		handle := mb.HandlerFor(msgTypeGreeting)
		handle([]byte("first"))
		handle([]byte("second"))

		Expect(mb.Wait(msgTypeGreeting)).To(Equal([]byte("first")))
		Expect(mb.Wait(msgTypeGreeting)).To(Equal([]byte("second")))
	})

	It("TryPop reports absence without blocking", func() {
		mb := NewMailBox()
		_, ok := mb.TryPop(msgTypeGreeting)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Server", func() {
	It("refuses to start with an expected type unbound", func() {
		s, err := NewServer(0)
		Expect(err).NotTo(HaveOccurred())
		defer s.ln.Close()
		err = s.Start([]int32{msgTypeGreeting})
		Expect(err).To(HaveOccurred())
		Expect(cmn.KindOf(err)).To(Equal(cmn.ErrConfiguration))
	})

	It("delivers a pushed frame across two servers", func() {
		a, b := newLocalPair()
		received := make(chan []byte, 1)
		Expect(b.RegisterCallback(msgTypeGreeting, func(body []byte) { received <- body })).To(Succeed())
		Expect(a.RegisterCallback(msgTypeGreeting, func(body []byte) {})).To(Succeed())

		Expect(a.Start([]int32{msgTypeGreeting})).To(Succeed())
		Expect(b.Start([]int32{msgTypeGreeting})).To(Succeed())
		defer a.Stop()
		defer b.Stop()

		a.Push(1, msgTypeGreeting, []byte("hello"))

		Eventually(received, time.Second).Should(Receive(Equal([]byte("hello"))))
	})

	It("delivers a local push synchronously without touching the socket", func() {
		a, err := NewServer(0)
		Expect(err).NotTo(HaveOccurred())
		defer a.ln.Close()
		got := make(chan []byte, 1)
		Expect(a.RegisterCallback(msgTypeGreeting, func(body []byte) { got <- body })).To(Succeed())
		a.Push(0, msgTypeGreeting, []byte("loopback"))
		Expect(<-got).To(Equal([]byte("loopback")))
	})
})
