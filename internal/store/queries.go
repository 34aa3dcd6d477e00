package store

// Column lists shared by both backends. COALESCE keeps nullable columns
// scannable into plain Go values.
const (
	userColumns = `id, username, password_hash, status,
		COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(role, '')`

	orderColumns = `id, order_number, customer_name, total_amount, status, created_at,
		COALESCE(product_type, ''), COALESCE(unit, ''), COALESCE(quantity, 0), COALESCE(price, 0),
		sales_officer_id`
)
