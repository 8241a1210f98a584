package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"github.com/shopspring/decimal"
)

func TestOpeningLedgerAndRotationRegression(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stockchat_test")
	t.Setenv("SEED_OPENINGS_ON_ROTATION", "true")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	day, err := utils.ParseTradeDate("2026-08-28")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	priorDay := day.AddDate(0, 0, -1)

	outlet := models.Outlet{Name: "Downtown", Timezone: "Asia/Yangon", TradeDate: day, Active: true}
	if err := db.WithContext(ctx).Create(&outlet).Error; err != nil {
		t.Fatalf("create outlet: %v", err)
	}
	items := []models.StockItem{
		{ItemKey: "chicken-whole", Name: "Whole chicken", Unit: "pcs", Active: true},
		{ItemKey: "rice-bag", Name: "Rice bag", Unit: "bag", Active: true},
	}
	for i := range items {
		if err := db.WithContext(ctx).Create(&items[i]).Error; err != nil {
			t.Fatalf("create item: %v", err)
		}
	}

	t.Run("duplicate event ids are absorbed", func(t *testing.T) {
		admitted, err := models.AdmitEvent(ctx, "wamid.test.1")
		if err != nil || !admitted {
			t.Fatalf("first delivery: admitted=%v err=%v", admitted, err)
		}
		admitted, err = models.AdmitEvent(ctx, "wamid.test.1")
		if err != nil {
			t.Fatalf("second delivery errored: %v", err)
		}
		if admitted {
			t.Fatalf("second delivery must not be admitted")
		}
	})

	t.Run("replace post locks and conflicts", func(t *testing.T) {
		qty := decimal.NewFromInt(10)
		res, err := models.PostOpeningItem(ctx, day, outlet.ID, "chicken-whole", qty, nil, "pcs", models.PostModeReplace, "internal")
		if err != nil {
			t.Fatalf("first replace post: %v", err)
		}
		if !res.TotalQty.Equal(qty) || !res.Row.Locked() {
			t.Fatalf("first post should land qty=10 locked, got total=%s locked=%v", res.TotalQty, res.Row.Locked())
		}

		_, err = models.PostOpeningItem(ctx, day, outlet.ID, "chicken-whole", decimal.NewFromInt(99), nil, "pcs", models.PostModeReplace, "internal")
		if !errors.Is(err, models.ErrOpeningLocked) {
			t.Fatalf("second post must conflict with ErrOpeningLocked, got %v", err)
		}

		rows, err := models.ListOpenings(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("list openings: %v", err)
		}
		if len(rows) != 1 || !rows[0].Qty.Equal(qty) {
			t.Fatalf("loser must not mutate the row: %+v", rows)
		}
	})

	t.Run("admin unlock allows a repost", func(t *testing.T) {
		unlocked, err := models.UnlockOpening(ctx, day, outlet.ID, "chicken-whole")
		if err != nil || unlocked != 1 {
			t.Fatalf("unlock: n=%d err=%v", unlocked, err)
		}
		res, err := models.PostOpeningItem(ctx, day, outlet.ID, "chicken-whole", decimal.NewFromInt(12), nil, "pcs", models.PostModeReplace, "internal")
		if err != nil {
			t.Fatalf("repost after unlock: %v", err)
		}
		if !res.TotalQty.Equal(decimal.NewFromInt(12)) || !res.ExistedQty.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("repost should replace 10 with 12, got existed=%s total=%s", res.ExistedQty, res.TotalQty)
		}
	})

	t.Run("additive posts accumulate then lock", func(t *testing.T) {
		res, err := models.PostOpeningItem(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(3), nil, "bag", models.PostModeAdd, "SP01")
		if err != nil {
			t.Fatalf("first add: %v", err)
		}
		if !res.TotalQty.Equal(decimal.NewFromInt(3)) || res.Row.Locked() {
			t.Fatalf("fresh add should create unlocked qty=3, got total=%s locked=%v", res.TotalQty, res.Row.Locked())
		}

		res, err = models.PostOpeningItem(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(4), nil, "bag", models.PostModeAdd, "SP01")
		if err != nil {
			t.Fatalf("second add: %v", err)
		}
		if !res.TotalQty.Equal(decimal.NewFromInt(7)) || !res.ExistedQty.Equal(decimal.NewFromInt(3)) {
			t.Fatalf("second add should total 7 over existed 3, got existed=%s total=%s", res.ExistedQty, res.TotalQty)
		}
		if !res.Row.Locked() {
			t.Fatalf("second add must leave the row locked")
		}

		_, err = models.PostOpeningItem(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(1), nil, "bag", models.PostModeAdd, "SP01")
		if !errors.Is(err, models.ErrOpeningLocked) {
			t.Fatalf("third add must conflict, got %v", err)
		}
	})

	t.Run("supplier submit locks touched rows", func(t *testing.T) {
		if _, err := models.UnlockOpening(ctx, day, outlet.ID, "rice-bag"); err != nil {
			t.Fatalf("unlock rice-bag: %v", err)
		}
		locked, err := models.LockOpeningRows(ctx, day, outlet.ID, []string{"rice-bag", "chicken-whole"}, "SP01")
		if err != nil {
			t.Fatalf("lock rows: %v", err)
		}
		// chicken-whole is already locked from the replace subtest.
		if locked != 1 {
			t.Fatalf("expected 1 newly locked row, got %d", locked)
		}
	})

	t.Run("opening effective unions prior closing and today opening", func(t *testing.T) {
		// Prior day: closing of 5 chickens, plus a prior-day opening so the
		// closing guard passes.
		if _, err := models.PostOpeningItem(ctx, priorDay, outlet.ID, "chicken-whole", decimal.NewFromInt(9), nil, "pcs", models.PostModeReplace, "internal"); err != nil {
			t.Fatalf("prior-day opening: %v", err)
		}
		if _, err := models.UpsertClosing(ctx, priorDay, outlet.ID, "chicken-whole", decimal.NewFromInt(5), decimal.Zero, "AT01"); err != nil {
			t.Fatalf("prior-day closing: %v", err)
		}

		rows, err := models.OpeningEffective(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("opening effective: %v", err)
		}
		byKey := map[string]decimal.Decimal{}
		for _, r := range rows {
			byKey[r.ItemKey] = r.EffectiveQty
		}
		// chicken: prior closing 5 + today opening 12 = 17; rice: 0 + 7 = 7.
		if !byKey["chicken-whole"].Equal(decimal.NewFromInt(17)) {
			t.Fatalf("chicken effective: want 17, got %s", byKey["chicken-whole"])
		}
		if !byKey["rice-bag"].Equal(decimal.NewFromInt(7)) {
			t.Fatalf("rice effective: want 7, got %s", byKey["rice-bag"])
		}
	})

	t.Run("closing rejects counts above effective opening", func(t *testing.T) {
		_, err := models.UpsertClosing(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(6), decimal.NewFromInt(2), "AT01")
		if !errors.Is(err, models.ErrOverclose) {
			t.Fatalf("6+2 over effective 7 must be ErrOverclose, got %v", err)
		}
		if _, err := models.UpsertClosing(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(5), decimal.NewFromInt(2), "AT01"); err != nil {
			t.Fatalf("5+2 within effective 7 must pass: %v", err)
		}
		// Re-count overwrites.
		if _, err := models.UpsertClosing(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(4), decimal.Zero, "AT01"); err != nil {
			t.Fatalf("re-count: %v", err)
		}
		closings, err := models.ListClosings(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("list closings: %v", err)
		}
		if len(closings) != 1 || !closings[0].ClosingQty.Equal(decimal.NewFromInt(4)) {
			t.Fatalf("re-count must overwrite, got %+v", closings)
		}
	})

	t.Run("expense retry on the same event id posts once", func(t *testing.T) {
		first, err := models.RecordExpense(ctx, day, outlet.ID, "charcoal", decimal.NewFromInt(12500), "AT01", "wamid.exp.1")
		if err != nil {
			t.Fatalf("first expense: %v", err)
		}
		second, err := models.RecordExpense(ctx, day, outlet.ID, "charcoal", decimal.NewFromInt(12500), "AT01", "wamid.exp.1")
		if err != nil {
			t.Fatalf("retried expense: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("retry must return the original row, got %d and %d", first.ID, second.ID)
		}
		expenses, err := models.ListExpenses(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("list expenses: %v", err)
		}
		if len(expenses) != 1 {
			t.Fatalf("expected exactly 1 expense row, got %d", len(expenses))
		}
	})

	t.Run("review queue approve and reject", func(t *testing.T) {
		if _, err := models.RecordDeposit(ctx, day, outlet.ID, decimal.NewFromInt(90000), "TXN1", "raw", "AT01", "wamid.dep.1"); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		pending, err := models.ListPendingReviews(ctx)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if len(pending) != 2 {
			t.Fatalf("expected expense + deposit pending, got %d", len(pending))
		}

		var expenseRef, depositRef string
		for _, p := range pending {
			if strings.HasPrefix(p.Ref, "E") {
				expenseRef = p.Ref
			} else {
				depositRef = p.Ref
			}
		}
		if err := models.ApproveReview(ctx, expenseRef, "SV01"); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := models.RejectReview(ctx, depositRef, "SV01", "wrong slip"); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if err := models.ApproveReview(ctx, expenseRef, "SV01"); !errors.Is(err, models.ErrReviewNotFound) {
			t.Fatalf("double approve must be not-found, got %v", err)
		}

		pending, err = models.ListPendingReviews(ctx)
		if err != nil {
			t.Fatalf("pending after review: %v", err)
		}
		if len(pending) != 0 {
			t.Fatalf("queue should be empty, got %d", len(pending))
		}
	})

	t.Run("period lock refuses attendant writes", func(t *testing.T) {
		if err := models.LockTradingPeriod(ctx, day, outlet.ID, "SV01"); err != nil {
			t.Fatalf("lock period: %v", err)
		}
		if _, err := models.UpsertClosing(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(1), decimal.Zero, "AT01"); !errors.Is(err, models.ErrPeriodLocked) {
			t.Fatalf("closing into a locked period must fail, got %v", err)
		}
		if _, err := models.RecordExpense(ctx, day, outlet.ID, "ice", decimal.NewFromInt(500), "AT01", "wamid.exp.2"); !errors.Is(err, models.ErrPeriodLocked) {
			t.Fatalf("expense into a locked period must fail, got %v", err)
		}
		// Locking again is a no-op.
		if err := models.LockTradingPeriod(ctx, day, outlet.ID, "SV01"); err != nil {
			t.Fatalf("re-lock: %v", err)
		}
		// Unblock the rotation subtests.
		if err := db.WithContext(ctx).Where("trade_date = ? AND outlet_id = ?", day, outlet.ID).
			Delete(&models.TradingPeriodLock{}).Error; err != nil {
			t.Fatalf("clear lock: %v", err)
		}
	})

	t.Run("midday rotation resets openings from closings", func(t *testing.T) {
		result, err := models.StartTradingPeriod(ctx, outlet.ID, false, "ops")
		if err != nil {
			t.Fatalf("first rotation: %v", err)
		}
		if result.Phase != models.RotationPhaseFirstDone {
			t.Fatalf("expected FIRST_DONE, got %v", result.Phase)
		}

		rows, err := models.ListOpenings(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("list openings: %v", err)
		}
		for _, r := range rows {
			if r.Locked() {
				t.Fatalf("midday rotation must clear every lock, %s still locked", r.ItemKey)
			}
			switch r.ItemKey {
			case "rice-bag":
				// Counted 4 before rotation.
				if !r.Qty.Equal(decimal.NewFromInt(4)) {
					t.Fatalf("rice opening after rotation: want 4, got %s", r.Qty)
				}
			case "chicken-whole":
				// Never counted today; quantity is untouched.
				if !r.Qty.Equal(decimal.NewFromInt(12)) {
					t.Fatalf("chicken opening after rotation: want 12, got %s", r.Qty)
				}
			}
		}
		closings, err := models.ListClosings(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("list closings: %v", err)
		}
		if len(closings) != 0 {
			t.Fatalf("midday rotation must consume closing rows, got %d", len(closings))
		}
		// Date unchanged.
		fresh, err := models.GetOutletById(ctx, outlet.ID)
		if err != nil {
			t.Fatalf("get outlet: %v", err)
		}
		if !fresh.TradeDate.Equal(day) {
			t.Fatalf("midday rotation must not advance the date, got %s", fresh.TradeDate)
		}
	})

	t.Run("second rotation closes the day and seeds tomorrow", func(t *testing.T) {
		// Count an item in the second period.
		if _, err := models.UpsertClosing(ctx, day, outlet.ID, "rice-bag", decimal.NewFromInt(2), decimal.Zero, "AT01"); err != nil {
			t.Fatalf("second-period closing: %v", err)
		}

		result, err := models.StartTradingPeriod(ctx, outlet.ID, false, "ops")
		if err != nil {
			t.Fatalf("second rotation: %v", err)
		}
		if result.Phase != models.RotationPhaseSecondDone {
			t.Fatalf("expected SECOND_DONE, got %v", result.Phase)
		}

		state, err := models.GetPeriodState(ctx, day, outlet.ID)
		if err != nil {
			t.Fatalf("period state: %v", err)
		}
		if state != models.PeriodStateLocked {
			t.Fatalf("day must be locked after the second rotation")
		}

		nextDay := day.AddDate(0, 0, 1)
		fresh, err := models.GetOutletById(ctx, outlet.ID)
		if err != nil {
			t.Fatalf("get outlet: %v", err)
		}
		if !fresh.TradeDate.Equal(nextDay) {
			t.Fatalf("trade date must advance to %s, got %s", nextDay, fresh.TradeDate)
		}

		// SEED_OPENINGS_ON_ROTATION=true: the 2 rice bags carry over unlocked.
		seeded, err := models.ListOpenings(ctx, nextDay, outlet.ID)
		if err != nil {
			t.Fatalf("list seeded openings: %v", err)
		}
		foundRice := false
		for _, r := range seeded {
			if r.ItemKey == "rice-bag" {
				foundRice = true
				if !r.Qty.Equal(decimal.NewFromInt(2)) || r.Locked() {
					t.Fatalf("seeded rice row wrong: qty=%s locked=%v", r.Qty, r.Locked())
				}
			}
		}
		if !foundRice {
			t.Fatalf("expected seeded rice-bag opening for %s", nextDay)
		}

		// A third count on the closed day has nowhere to go. The outlet's
		// trade date already moved, so rotate it back for the assertion.
		if err := db.WithContext(ctx).Model(&models.Outlet{}).Where("id = ?", outlet.ID).
			Update("trade_date", day).Error; err != nil {
			t.Fatalf("rewind outlet date: %v", err)
		}
		if _, err := models.StartTradingPeriod(ctx, outlet.ID, false, "ops"); !errors.Is(err, models.ErrDayClosed) {
			t.Fatalf("third rotation must be ErrDayClosed, got %v", err)
		}
	})

	t.Run("session store create, save and logout resumption", func(t *testing.T) {
		sess, err := models.LoadSession(ctx, "959123456789")
		if err != nil {
			t.Fatalf("first contact: %v", err)
		}
		if sess.State != models.SessionStateLogin || sess.Authenticated() {
			t.Fatalf("first contact must be an unauthenticated LOGIN session: %+v", sess)
		}

		sess.Role = models.RoleAttendant
		sess.BoundCode = "AT01"
		sess.OutletId = &outlet.ID
		sess.State = models.SessionStateClosingQty
		sess.SetCursor(models.SessionCursor{
			Kind:    models.CursorKindClosing,
			Closing: &models.ClosingDraft{ItemKey: "rice-bag", ItemName: "Rice bag"},
		})
		if err := models.SaveSession(ctx, sess); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded, err := models.LoadSession(ctx, "959123456789")
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if loaded.State != models.SessionStateClosingQty || loaded.Cursor().Kind != models.CursorKindClosing {
			t.Fatalf("reload lost state: %+v", loaded)
		}

		out, err := models.LogoutSession(ctx, loaded)
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
		if out.Authenticated() || out.State != models.SessionStateLogin {
			t.Fatalf("logout must clear identity: %+v", out)
		}
		if out.Cursor().Kind != models.CursorKindClosing {
			t.Fatalf("logout must preserve the resumable cursor, got %q", out.Cursor().Kind)
		}

		if err := models.WipeSession(ctx, "959123456789"); err != nil {
			t.Fatalf("wipe: %v", err)
		}
	})
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stockchat-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stockchat-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stockchat_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
