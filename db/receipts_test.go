package db

import (
	"context"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
)

func testReceipt(sessionID string, plan PlanName, credits int64) *PaymentReceipt {
	return &PaymentReceipt{
		SessionID:  sessionID,
		UserID:     testUserID,
		PriceID:    testPriceID,
		Plan:       plan,
		Credits:    credits,
		Amount:     39.0,
		Currency:   "usd",
		Status:     "paid",
		CustomerID: testCustomerID,
	}
}

func TestApplyPaymentReceipt(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	ctx := context.Background()

	// first application credits the user and records the receipt
	applied, err := testDB.ApplyPaymentReceipt(ctx, testReceipt(testSessionID, PlanGrowth, 5))
	c.Assert(err, qt.IsNil)
	c.Assert(applied, qt.IsTrue)

	user, err := testDB.User(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.SessionCredits, qt.Equals, int64(5))
	c.Assert(user.Plan, qt.Equals, PlanGrowth)

	receipt, err := testDB.Receipt(testSessionID)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.UserID, qt.Equals, testUserID)
	c.Assert(receipt.Credits, qt.Equals, int64(5))
	c.Assert(receipt.CreatedAt.IsZero(), qt.IsFalse)

	// redelivery of the same session is a no-op
	for range [3]struct{}{} {
		applied, err = testDB.ApplyPaymentReceipt(ctx, testReceipt(testSessionID, PlanGrowth, 5))
		c.Assert(err, qt.IsNil)
		c.Assert(applied, qt.IsFalse)
	}

	user, err = testDB.User(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.SessionCredits, qt.Equals, int64(5))

	receipts, err := testDB.ReceiptsByUser(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(receipts, qt.HasLen, 1)

	// a different session accumulates on top of the existing balance
	applied, err = testDB.ApplyPaymentReceipt(ctx, testReceipt("cs_test_other456", PlanStarter, 1))
	c.Assert(err, qt.IsNil)
	c.Assert(applied, qt.IsTrue)

	user, err = testDB.User(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.SessionCredits, qt.Equals, int64(6))
	c.Assert(user.Plan, qt.Equals, PlanStarter)

	receipts, err = testDB.ReceiptsByUser(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(receipts, qt.HasLen, 2)
}

func TestApplyPaymentReceiptConcurrent(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	ctx := context.Background()

	// race the same session from many goroutines, exactly one must credit
	const workers = 10
	results := make(chan bool, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for range [workers]struct{}{} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := testDB.ApplyPaymentReceipt(ctx, testReceipt(testSessionID, PlanPro, 10))
			results <- applied
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		c.Assert(err, qt.IsNil)
	}
	appliedCount := 0
	for applied := range results {
		if applied {
			appliedCount++
		}
	}
	c.Assert(appliedCount, qt.Equals, 1)

	user, err := testDB.User(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.SessionCredits, qt.Equals, int64(10))

	receipts, err := testDB.ReceiptsByUser(testUserID)
	c.Assert(err, qt.IsNil)
	c.Assert(receipts, qt.HasLen, 1)
}

func TestApplyPaymentReceiptValidation(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	_, err := testDB.ApplyPaymentReceipt(ctx, &PaymentReceipt{UserID: testUserID})
	c.Assert(err, qt.Equals, ErrInvalidData)

	_, err = testDB.ApplyPaymentReceipt(ctx, &PaymentReceipt{SessionID: testSessionID})
	c.Assert(err, qt.Equals, ErrInvalidData)

	// only purchasable tiers can be credited through the receipt gate
	_, err = testDB.ApplyPaymentReceipt(ctx, testReceipt(testSessionID, PlanCanceled, 0))
	c.Assert(err, qt.Equals, ErrInvalidData)
}

func TestReceipt(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	_, err := testDB.Receipt(testSessionID)
	c.Assert(err, qt.Equals, ErrNotFound)

	_, err = testDB.Receipt("")
	c.Assert(err, qt.Equals, ErrInvalidData)
}
