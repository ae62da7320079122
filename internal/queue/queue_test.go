package queue_test

import (
	"context"
	"errors"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"forest.app/forest/internal/queue"
)

const (
	stream = "forest_jobs"
	group  = "forest_group"
	dlq    = "forest_jobs_dlq"
)

var _ = Describe("Redis streams", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		client   *redis.Client
		producer queue.Producer
		consumer *queue.RedisConsumer
	)

	newConsumer := func(name string) *queue.RedisConsumer {
		c, err := queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{
			Stream:    stream,
			Group:     group,
			Consumer:  name,
			DLQStream: dlq,
			BatchSize: 10,
			Block:     -1,
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		producer = queue.NewRedisProducer(client, stream, nil)
		consumer = newConsumer("worker-1")
	})

	It("round trips a rebalance job", func() {
		Expect(producer.EnqueueRebalance(ctx, "u1", "node-7")).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Job).To(Equal(queue.Job{
			Type:    queue.JobTypeHTARebalance,
			UserID:  "u1",
			NodeID:  "node-7",
			Attempt: 1,
		}))
	})

	It("round trips an export job", func() {
		Expect(producer.EnqueueExport(ctx, "u1")).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Job.Type).To(Equal(queue.JobTypeSnapshotExport))
		Expect(msgs[0].Job.NodeID).To(BeEmpty())
	})

	It("refuses unknown job types", func() {
		err := producer.Enqueue(ctx, queue.Job{Type: "compost", UserID: "u1"})
		Expect(err).To(MatchError(ContainSubstring("unknown job type")))
	})

	It("returns no messages on an empty stream", func() {
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())
	})

	It("acks and skips malformed messages", func() {
		Expect(client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]any{"job_type": "hta_rebalance", "user_id": "u1"},
		}).Err()).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())

		pending, err := client.XPending(ctx, stream, group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})

	It("removes acked messages from the pending list", func() {
		Expect(producer.EnqueueExport(ctx, "u1")).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.Ack(ctx, msgs[0])).To(Succeed())

		pending, err := client.XPending(ctx, stream, group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})

	It("requeues with the next attempt number", func() {
		Expect(producer.EnqueueRebalance(ctx, "u1", "n1")).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.Requeue(ctx, msgs[0], "llm timeout")).To(Succeed())

		msgs, err = consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Attempt).To(Equal(2))
		Expect(msgs[0].Raw.Values).To(HaveKeyWithValue("last_error", "llm timeout"))
	})

	It("moves dead messages to the DLQ", func() {
		Expect(producer.EnqueueRebalance(ctx, "u1", "n1")).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.SendDLQ(ctx, msgs[0], "gave up")).To(Succeed())

		dead, err := client.XRange(ctx, dlq, "-", "+").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(dead).To(HaveLen(1))
		Expect(dead[0].Values).To(HaveKeyWithValue("error", "gave up"))
		Expect(dead[0].Values).To(HaveKeyWithValue("user_id", "u1"))
	})

	It("claims messages left pending by another consumer", func() {
		Expect(producer.EnqueueRebalance(ctx, "u1", "n1")).To(Succeed())
		_, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		other := newConsumer("worker-2")
		claimed, err := other.Claim(ctx, 0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed).To(HaveLen(1))
		Expect(claimed[0].Job.NodeID).To(Equal("n1"))

		ext, err := client.XPendingExt(ctx, &redis.XPendingExtArgs{Stream: stream, Group: group, Start: "-", End: "+", Count: 10}).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(ext).To(HaveLen(1))
		Expect(ext[0].Consumer).To(Equal("worker-2"))
	})

	It("fails to read once redis is gone", func() {
		mr.Close()
		_, err := consumer.Read(ctx)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, redis.Nil)).To(BeFalse())
	})
})
