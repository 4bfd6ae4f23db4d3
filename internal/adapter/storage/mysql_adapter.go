package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
)

const restaurantLogoURL = "https://images.unsplash.com/photo-1572802419224-296b0aeee0d9?w=100&q=80"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS past_items (
		item_id         VARCHAR(64) PRIMARY KEY,
		name            VARCHAR(255) NOT NULL,
		image_url       VARCHAR(512) NOT NULL DEFAULT '',
		price           DECIMAL(10,2) NOT NULL,
		is_available    BOOLEAN NOT NULL DEFAULT TRUE,
		restaurant_id   VARCHAR(64) NOT NULL,
		restaurant_name VARCHAR(255) NOT NULL,
		listed          BOOLEAN NOT NULL DEFAULT TRUE,
		listed_at       TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	)`,
	`CREATE TABLE IF NOT EXISTS past_orders (
		order_id        VARCHAR(64) PRIMARY KEY,
		restaurant_id   VARCHAR(64) NOT NULL,
		restaurant_name VARCHAR(255) NOT NULL,
		order_date      DATETIME NOT NULL,
		total_price     DECIMAL(10,2) NOT NULL,
		item_count      INT NOT NULL,
		item_summary    VARCHAR(512) NOT NULL,
		reorder_action  VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS past_order_items (
		order_id VARCHAR(64) NOT NULL,
		item_id  VARCHAR(64) NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (order_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                VARCHAR(64) PRIMARY KEY,
		session_id        VARCHAR(64) NOT NULL,
		address           VARCHAR(512) NOT NULL,
		phone             VARCHAR(16) NOT NULL,
		instructions      VARCHAR(512) NOT NULL DEFAULT '',
		requested_time    VARCHAR(32) NOT NULL,
		payment_method_id VARCHAR(64) NOT NULL,
		promo_code        VARCHAR(32) NOT NULL DEFAULT '',
		subtotal          DECIMAL(12,4) NOT NULL,
		tax               DECIMAL(12,4) NOT NULL,
		delivery_fee      DECIMAL(12,4) NOT NULL,
		tip_percent       INT NOT NULL,
		tip               DECIMAL(12,4) NOT NULL,
		discount          DECIMAL(12,4) NOT NULL,
		total             DECIMAL(12,4) NOT NULL,
		status            VARCHAR(16) NOT NULL,
		created_at        DATETIME(6) NOT NULL,
		updated_at        DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		order_id   VARCHAR(64) NOT NULL,
		line_id    VARCHAR(64) NOT NULL,
		item_id    VARCHAR(64) NOT NULL,
		name       VARCHAR(255) NOT NULL,
		quantity   INT NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL,
		position   INT NOT NULL,
		configuration JSON NULL,
		PRIMARY KEY (order_id, line_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_additions (
		id       BIGINT AUTO_INCREMENT PRIMARY KEY,
		item_id  VARCHAR(64) NOT NULL,
		added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// MySQLAdapter serves the past-orders and order ports from MySQL.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// columnMigrations bring tables created by older versions up to date.
var columnMigrations = []string{
	`ALTER TABLE order_lines ADD COLUMN configuration JSON NULL`,
}

// errDupFieldName is returned when a column already exists.
const errDupFieldName = 1060

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	for _, stmt := range columnMigrations {
		_, err := m.db.ExecContext(ctx, stmt)
		var myErr *mysql.MySQLError
		if err != nil && !(errors.As(err, &myErr) && myErr.Number == errDupFieldName) {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// SeedCatalog upserts items and orders in one transaction. Items that only
// appear inside orders are stored unlisted.
func (m *MySQLAdapter) SeedCatalog(ctx context.Context, items []domain.PastItem, orders []domain.PastOrder) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	upsertItem := func(it domain.PastItem, listed bool) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO past_items (item_id, name, image_url, price, is_available, restaurant_id, restaurant_name, listed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), image_url = VALUES(image_url), price = VALUES(price),
				is_available = VALUES(is_available), listed = listed OR VALUES(listed)`,
			it.ItemID, it.Name, it.ImageURL, it.Price, it.IsAvailable, it.RestaurantID, it.RestaurantName, listed,
		)
		if err != nil {
			return fmt.Errorf("upsert item %s: %w", it.ItemID, err)
		}
		return nil
	}

	for _, it := range items {
		if err := upsertItem(it, true); err != nil {
			return err
		}
	}

	for _, o := range orders {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO past_orders (order_id, restaurant_id, restaurant_name, order_date, total_price, item_count, item_summary, reorder_action)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE total_price = VALUES(total_price), item_count = VALUES(item_count),
				item_summary = VALUES(item_summary), reorder_action = VALUES(reorder_action)`,
			o.OrderID, o.RestaurantID, o.RestaurantName, o.OrderDate, o.TotalPrice, o.ItemCount, o.ItemSummary, string(o.ReorderAction),
		)
		if err != nil {
			return fmt.Errorf("upsert order %s: %w", o.OrderID, err)
		}

		for pos, it := range o.Items {
			if err := upsertItem(it, false); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				INSERT IGNORE INTO past_order_items (order_id, item_id, position) VALUES (?, ?, ?)`,
				o.OrderID, it.ItemID, pos,
			)
			if err != nil {
				return fmt.Errorf("link item %s to order %s: %w", it.ItemID, o.OrderID, err)
			}
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) FetchPastItems(ctx context.Context) ([]domain.PastItemGroup, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, name, image_url, price, is_available, restaurant_id, restaurant_name
		FROM past_items WHERE listed = TRUE ORDER BY listed_at, item_id`)
	if err != nil {
		return nil, fmt.Errorf("query past items: %w", err)
	}
	defer rows.Close()

	var items []domain.PastItem
	for rows.Next() {
		var it domain.PastItem
		if err := rows.Scan(&it.ItemID, &it.Name, &it.ImageURL, &it.Price, &it.IsAvailable, &it.RestaurantID, &it.RestaurantName); err != nil {
			return nil, fmt.Errorf("scan past item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate past items: %w", err)
	}

	info := domain.DeliveryInfo{Fee: domain.DefaultFeeSchedule().DeliveryFee, Minutes: 25}
	return domain.GroupByRestaurant(items, restaurantLogoURL, info), nil
}

// FetchPastOrders loads order headers and their items concurrently and joins them in memory.
func (m *MySQLAdapter) FetchPastOrders(ctx context.Context) ([]domain.PastOrder, error) {
	var (
		orders []domain.PastOrder
		links  map[string][]domain.PastItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = m.queryOrders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		links, err = m.queryOrderItems(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items = links[orders[i].OrderID]
	}
	return orders, nil
}

func (m *MySQLAdapter) AddItemToCart(ctx context.Context, itemID string) (domain.AddToCartResult, error) {
	var it domain.PastItem
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, name, image_url, price, is_available, restaurant_id, restaurant_name
		FROM past_items WHERE item_id = ?`, itemID,
	).Scan(&it.ItemID, &it.Name, &it.ImageURL, &it.Price, &it.IsAvailable, &it.RestaurantID, &it.RestaurantName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AddToCartResult{}, fmt.Errorf("item %s: %w", itemID, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.AddToCartResult{}, fmt.Errorf("query item: %w", err)
	}

	if !it.IsAvailable {
		return domain.AddToCartResult{Success: false, Message: domain.ErrMsgItemUnavailable, Item: it}, nil
	}
	return domain.AddToCartResult{Success: true, Item: it}, nil
}

func (m *MySQLAdapter) ReorderPastOrder(ctx context.Context, orderID string) (domain.ReorderResult, error) {
	var exists int
	err := m.db.QueryRowContext(ctx, `SELECT 1 FROM past_orders WHERE order_id = ?`, orderID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReorderResult{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.ReorderResult{}, fmt.Errorf("query order: %w", err)
	}

	links, err := m.queryOrderItems(ctx, orderID)
	if err != nil {
		return domain.ReorderResult{}, err
	}
	return domain.SplitByAvailability(links[orderID]), nil
}

func (m *MySQLAdapter) AddMultipleItemsFromOrder(ctx context.Context, items []domain.PastItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cart_additions (item_id) VALUES (?)`, it.ItemID); err != nil {
			return fmt.Errorf("insert cart addition: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) queryOrders(ctx context.Context) ([]domain.PastOrder, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, restaurant_id, restaurant_name, order_date, total_price, item_count, item_summary, reorder_action
		FROM past_orders ORDER BY order_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query past orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.PastOrder
	for rows.Next() {
		var (
			o      domain.PastOrder
			action string
		)
		if err := rows.Scan(&o.OrderID, &o.RestaurantID, &o.RestaurantName, &o.OrderDate, &o.TotalPrice, &o.ItemCount, &o.ItemSummary, &action); err != nil {
			return nil, fmt.Errorf("scan past order: %w", err)
		}
		o.ReorderAction = domain.ReorderAction(action)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate past orders: %w", err)
	}
	return orders, nil
}

// queryOrderItems returns items keyed by order id; an empty orderID loads every order.
func (m *MySQLAdapter) queryOrderItems(ctx context.Context, orderID string) (map[string][]domain.PastItem, error) {
	query := `
		SELECT l.order_id, i.item_id, i.name, i.image_url, i.price, i.is_available, i.restaurant_id, i.restaurant_name
		FROM past_order_items l JOIN past_items i ON i.item_id = l.item_id`
	var args []any
	if orderID != "" {
		query += ` WHERE l.order_id = ?`
		args = append(args, orderID)
	}
	query += ` ORDER BY l.order_id, l.position`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.PastItem)
	for rows.Next() {
		var (
			oid string
			it  domain.PastItem
		)
		if err := rows.Scan(&oid, &it.ItemID, &it.Name, &it.ImageURL, &it.Price, &it.IsAvailable, &it.RestaurantID, &it.RestaurantName); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[oid] = append(out[oid], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return out, nil
}

// lineConfiguration is the JSON stored with each order line.
type lineConfiguration struct {
	Options []domain.OptionChoice `json:"options,omitempty"`
	AddOns  []domain.AddOn        `json:"add_ons,omitempty"`
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	p := order.Pricing
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, session_id, address, phone, instructions, requested_time, payment_method_id, promo_code,
			subtotal, tax, delivery_fee, tip_percent, tip, discount, total, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.SessionID, order.Delivery.Address, order.Delivery.Phone, order.Delivery.Instructions,
		string(order.Delivery.RequestedTime), order.PaymentMethodID, order.PromoCode,
		p.Subtotal, p.Tax, p.DeliveryFee, p.TipPercent, p.Tip, p.Discount, p.Total,
		string(order.Status), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for pos, l := range order.Lines {
		conf, err := json.Marshal(lineConfiguration{Options: l.Options, AddOns: l.AddOns})
		if err != nil {
			return fmt.Errorf("encode line %s configuration: %w", l.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_id, item_id, name, quantity, unit_price, position, configuration)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID, l.ID, l.ItemID, l.Name, l.Quantity, l.UnitPrice, pos, string(conf),
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var (
		o  domain.Order
		rt string
		st string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, session_id, address, phone, instructions, requested_time, payment_method_id, promo_code,
			subtotal, tax, delivery_fee, tip_percent, tip, discount, total, status, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.SessionID, &o.Delivery.Address, &o.Delivery.Phone, &o.Delivery.Instructions, &rt,
		&o.PaymentMethodID, &o.PromoCode, &o.Pricing.Subtotal, &o.Pricing.Tax, &o.Pricing.DeliveryFee,
		&o.Pricing.TipPercent, &o.Pricing.Tip, &o.Pricing.Discount, &o.Pricing.Total, &st, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order: %w", err)
	}
	o.Delivery.RequestedTime = domain.RequestedTime(rt)
	o.Status = domain.OrderStatus(st)

	rows, err := m.db.QueryContext(ctx, `
		SELECT line_id, item_id, name, quantity, unit_price, configuration
		FROM order_lines WHERE order_id = ? ORDER BY position`, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l    domain.CartLine
			conf sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Name, &l.Quantity, &l.UnitPrice, &conf); err != nil {
			return domain.Order{}, fmt.Errorf("scan order line: %w", err)
		}
		// Lines written before the column existed have no configuration.
		if conf.Valid {
			var c lineConfiguration
			if err := json.Unmarshal([]byte(conf.String), &c); err != nil {
				return domain.Order{}, fmt.Errorf("decode line %s configuration: %w", l.ID, err)
			}
			l.Options, l.AddOns = c.Options, c.AddOns
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}
