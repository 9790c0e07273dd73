package service

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	dateLayout        = "2006-01-02"
	lowStockAlert     = 5
	criticalStock     = 5
	velocityWindow    = 30
	vipSpendThreshold = 1000
)

// ReportService builds the back office reports. Reports are computed in
// memory from the order, product and customer tables.
type ReportService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	customers repository.CustomerRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewReportService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	log *zap.Logger,
) *ReportService {
	return &ReportService{
		orders:    orders,
		products:  products,
		customers: customers,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ProductSales struct {
	Product   *domain.Product `json:"product"`
	TotalSold int             `json:"total_sold"`
}

type DashboardOverview struct {
	TotalOrders    int             `json:"total_orders"`
	TodayOrders    int             `json:"today_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TodayRevenue   decimal.Decimal `json:"today_revenue"`
	TotalCustomers int             `json:"total_customers"`
	ActiveProducts int             `json:"active_products"`
}

type Dashboard struct {
	Overview       DashboardOverview          `json:"overview"`
	OrderStatus    map[domain.OrderStatus]int `json:"order_status"`
	TopProducts    []ProductSales             `json:"top_products"`
	LowStockAlerts []*domain.Product          `json:"low_stock_alerts"`
}

func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	orders, products, err := s.ordersAndProducts(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(dateLayout)
	d := &Dashboard{
		OrderStatus:    map[domain.OrderStatus]int{},
		TopProducts:    []ProductSales{},
		LowStockAlerts: []*domain.Product{},
	}
	d.Overview.TotalOrders = len(orders)
	d.Overview.TotalCustomers = len(customers)

	for _, o := range orders {
		d.Overview.TotalRevenue = d.Overview.TotalRevenue.Add(o.TotalAmount)
		if o.CreatedAt.UTC().Format(dateLayout) == today {
			d.Overview.TodayOrders++
			d.Overview.TodayRevenue = d.Overview.TodayRevenue.Add(o.TotalAmount)
		}
		d.OrderStatus[o.Status]++
	}

	for _, p := range products {
		if !p.IsActive {
			continue
		}
		d.Overview.ActiveProducts++
		if p.StockQuantity < lowStockAlert {
			d.LowStockAlerts = append(d.LowStockAlerts, p)
		}
	}

	index := indexProducts(products)
	for _, m := range rankMetrics(productMetrics(orders), byQuantity, 5) {
		if p, ok := index[m.productID]; ok {
			d.TopProducts = append(d.TopProducts, ProductSales{Product: p, TotalSold: m.TotalQuantity})
		}
	}
	return d, nil
}

type RevenueQuery struct {
	Period    string
	StartDate string
	EndDate   string
}

type RevenueSummary struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	DeliveryRevenue   decimal.Decimal `json:"delivery_revenue"`
}

type DayRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type RevenueReport struct {
	Period         string                                   `json:"period"`
	Summary        RevenueSummary                           `json:"summary"`
	PaymentMethods map[domain.PaymentMethod]decimal.Decimal `json:"payment_methods"`
	DailyBreakdown map[string]decimal.Decimal               `json:"daily_breakdown"`
	OrderStatus    map[domain.OrderStatus]decimal.Decimal   `json:"order_status"`
	TopRevenueDays []DayRevenue                             `json:"top_revenue_days"`
}

// Revenue reports on orders in a named period or an inclusive date range.
// A date range wins over the period when both bounds are given.
func (s *ReportService) Revenue(ctx context.Context, q RevenueQuery) (*RevenueReport, error) {
	if q.Period == "" {
		q.Period = "month"
	}
	filter, err := s.revenueWindow(q)
	if err != nil {
		return nil, err
	}

	orders, err := retryRead(ctx, func(ctx context.Context) ([]*domain.Order, error) {
		return s.orders.ListOrders(ctx, filter)
	})
	if err != nil {
		return nil, err
	}

	r := &RevenueReport{
		Period:         q.Period,
		PaymentMethods: map[domain.PaymentMethod]decimal.Decimal{},
		DailyBreakdown: map[string]decimal.Decimal{},
		OrderStatus:    map[domain.OrderStatus]decimal.Decimal{},
		TopRevenueDays: []DayRevenue{},
	}
	for _, o := range orders {
		r.Summary.TotalRevenue = r.Summary.TotalRevenue.Add(o.TotalAmount)
		r.Summary.DeliveryRevenue = r.Summary.DeliveryRevenue.Add(o.DeliveryCharge)
		r.PaymentMethods[o.PaymentMethod] = r.PaymentMethods[o.PaymentMethod].Add(o.TotalAmount)
		day := o.CreatedAt.UTC().Format(dateLayout)
		r.DailyBreakdown[day] = r.DailyBreakdown[day].Add(o.TotalAmount)
		r.OrderStatus[o.Status] = r.OrderStatus[o.Status].Add(o.TotalAmount)
	}
	r.Summary.TotalOrders = len(orders)
	r.Summary.AverageOrderValue = average(r.Summary.TotalRevenue, len(orders))

	for day, revenue := range r.DailyBreakdown {
		r.TopRevenueDays = append(r.TopRevenueDays, DayRevenue{Date: day, Revenue: revenue})
	}
	slices.SortFunc(r.TopRevenueDays, func(a, b DayRevenue) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Date, b.Date)
	})
	if len(r.TopRevenueDays) > 7 {
		r.TopRevenueDays = r.TopRevenueDays[:7]
	}
	return r, nil
}

func (s *ReportService) revenueWindow(q RevenueQuery) (repository.OrderFilter, error) {
	if q.StartDate != "" || q.EndDate != "" {
		start, err := time.Parse(dateLayout, q.StartDate)
		if err != nil {
			return repository.OrderFilter{}, domain.NewValidationError("start_date", "expected YYYY-MM-DD")
		}
		end, err := time.Parse(dateLayout, q.EndDate)
		if err != nil {
			return repository.OrderFilter{}, domain.NewValidationError("end_date", "expected YYYY-MM-DD")
		}
		if end.Before(start) {
			return repository.OrderFilter{}, domain.NewValidationError("end_date", "end_date is before start_date")
		}
		return repository.OrderFilter{Since: start, Until: end.AddDate(0, 0, 1)}, nil
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch q.Period {
	case "day":
		return repository.OrderFilter{Since: today}, nil
	case "week":
		return repository.OrderFilter{Since: now.AddDate(0, 0, -7)}, nil
	case "month":
		return repository.OrderFilter{Since: today.AddDate(0, 0, 1-today.Day())}, nil
	case "year":
		return repository.OrderFilter{Since: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)}, nil
	}
	return repository.OrderFilter{}, domain.NewValidationError("period", "period must be one of day, week, month, year")
}

type ProductMetrics struct {
	TotalQuantity       int             `json:"total_quantity"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	OrderCount          int             `json:"order_count"`
	AvgQuantityPerOrder float64         `json:"avg_quantity_per_order"`
	RevenuePerUnit      decimal.Decimal `json:"revenue_per_unit"`
}

type ProductPerformance struct {
	Product *domain.Product `json:"product"`
	Metrics ProductMetrics  `json:"metrics"`
}

type ProductAnalytics struct {
	TopByQuantity     []ProductPerformance `json:"top_selling_by_quantity"`
	TopByRevenue      []ProductPerformance `json:"top_revenue_generators"`
	MostOrdered       []ProductPerformance `json:"most_frequently_ordered"`
	LowPerformers     []*domain.Product    `json:"low_performers"`
	ProductsSold      int                  `json:"total_products_sold"`
	ProductsNeverSold int                  `json:"products_never_sold"`
}

func (s *ReportService) Products(ctx context.Context) (*ProductAnalytics, error) {
	orders, products, err := s.ordersAndProducts(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}

	metrics := productMetrics(orders)
	index := indexProducts(products)
	perf := func(by func(a, b *salesMetric) int) []ProductPerformance {
		out := []ProductPerformance{}
		for _, m := range rankMetrics(metrics, by, 10) {
			p, ok := index[m.productID]
			if !ok {
				continue
			}
			out = append(out, ProductPerformance{Product: p, Metrics: m.ProductMetrics})
		}
		return out
	}

	a := &ProductAnalytics{
		TopByQuantity: perf(byQuantity),
		TopByRevenue:  perf(byRevenue),
		MostOrdered:   perf(byOrderCount),
		LowPerformers: []*domain.Product{},
		ProductsSold:  len(metrics),
	}
	for _, p := range products {
		if _, sold := metrics[p.ID]; !sold && p.IsActive {
			a.LowPerformers = append(a.LowPerformers, p)
		}
	}
	a.ProductsNeverSold = len(a.LowPerformers)
	return a, nil
}

type CustomerSegment string

const (
	SegmentNew        CustomerSegment = "new"
	SegmentOneTime    CustomerSegment = "one_time"
	SegmentOccasional CustomerSegment = "occasional"
	SegmentRegular    CustomerSegment = "regular"
	SegmentLoyal      CustomerSegment = "loyal"
)

func segmentFor(orders int) CustomerSegment {
	switch {
	case orders == 0:
		return SegmentNew
	case orders == 1:
		return SegmentOneTime
	case orders < 5:
		return SegmentOccasional
	case orders < 10:
		return SegmentRegular
	}
	return SegmentLoyal
}

type OrderStats struct {
	TotalOrders       int             `json:"total_orders"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	LastOrderDate     *time.Time      `json:"last_order_date"`
	LastOrderAmount   decimal.Decimal `json:"last_order_amount"`
}

type CustomerReport struct {
	User       *domain.Customer `json:"user"`
	OrderStats OrderStats       `json:"order_stats"`
	Segment    CustomerSegment  `json:"segment"`
	Status     string           `json:"status"`
}

type CustomerSummary struct {
	TotalCustomers  int                     `json:"total_customers"`
	ActiveCustomers int                     `json:"active_customers"`
	Segments        map[CustomerSegment]int `json:"segments"`
	VIPCustomers    int                     `json:"vip_customers"`
}

type CustomerList struct {
	Customers []CustomerReport `json:"customers"`
	Summary   CustomerSummary  `json:"summary"`
}

// Customers lists every customer with order statistics, biggest spenders first.
func (s *ReportService) Customers(ctx context.Context) (*CustomerList, error) {
	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}

	byPhone := map[string][]*domain.Order{}
	for _, o := range orders {
		byPhone[o.UserPhone] = append(byPhone[o.UserPhone], o)
	}

	vip := decimal.NewFromInt(vipSpendThreshold)
	list := &CustomerList{
		Customers: make([]CustomerReport, 0, len(customers)),
		Summary:   CustomerSummary{Segments: map[CustomerSegment]int{}},
	}
	for _, c := range customers {
		r := CustomerReport{
			User:       c,
			OrderStats: orderStats(byPhone[c.Phone]),
			Segment:    segmentFor(len(byPhone[c.Phone])),
			Status:     "inactive",
		}
		if c.IsActive {
			r.Status = "active"
			list.Summary.ActiveCustomers++
		}
		if r.OrderStats.TotalSpent.GreaterThan(vip) {
			list.Summary.VIPCustomers++
		}
		list.Summary.Segments[r.Segment]++
		list.Customers = append(list.Customers, r)
	}
	list.Summary.TotalCustomers = len(list.Customers)

	slices.SortStableFunc(list.Customers, func(a, b CustomerReport) int {
		return b.OrderStats.TotalSpent.Cmp(a.OrderStats.TotalSpent)
	})
	return list, nil
}

// orderStats expects orders newest first.
func orderStats(orders []*domain.Order) OrderStats {
	st := OrderStats{TotalOrders: len(orders)}
	for _, o := range orders {
		st.TotalSpent = st.TotalSpent.Add(o.TotalAmount)
	}
	st.AverageOrderValue = average(st.TotalSpent, len(orders))
	if len(orders) > 0 {
		last := orders[0].CreatedAt
		st.LastOrderDate = &last
		st.LastOrderAmount = orders[0].TotalAmount
	}
	return st
}

type FavoriteProduct struct {
	Product      *domain.Product `json:"product"`
	TotalOrdered int             `json:"total_ordered"`
}

type CustomerAnalytics struct {
	TotalOrders        int               `json:"total_orders"`
	TotalSpent         decimal.Decimal   `json:"total_spent"`
	AverageOrderValue  decimal.Decimal   `json:"average_order_value"`
	OrderFrequencyDays float64           `json:"order_frequency_days"`
	FavoriteProducts   []FavoriteProduct `json:"favorite_products"`
}

type CustomerDetails struct {
	Customer       *domain.Customer  `json:"customer"`
	OrderHistory   []*domain.Order   `json:"order_history"`
	SavedAddresses []*domain.Address `json:"saved_addresses"`
	Analytics      CustomerAnalytics `json:"analytics"`
}

func (s *ReportService) CustomerDetails(ctx context.Context, rawPhone string) (*CustomerDetails, error) {
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	c, err := s.customers.GetCustomer(ctx, phone)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListOrdersByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	addresses, err := s.customers.ListAddresses(ctx, phone)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	if addresses == nil {
		addresses = []*domain.Address{}
	}

	st := orderStats(orders)
	d := &CustomerDetails{
		Customer:       c,
		OrderHistory:   orders,
		SavedAddresses: addresses,
		Analytics: CustomerAnalytics{
			TotalOrders:       st.TotalOrders,
			TotalSpent:        st.TotalSpent,
			AverageOrderValue: st.AverageOrderValue,
			FavoriteProducts:  []FavoriteProduct{},
		},
	}
	if n := len(orders); n > 1 {
		days := math.Floor(orders[0].CreatedAt.Sub(orders[n-1].CreatedAt).Hours() / 24)
		d.Analytics.OrderFrequencyDays = roundTo(days/float64(n), 1)
	}

	favorites := rankMetrics(productMetrics(orders), byQuantity, 5)
	if len(favorites) > 0 {
		ids := make([]string, 0, len(favorites))
		for _, m := range favorites {
			ids = append(ids, m.productID)
		}
		products, err := s.products.GetProductsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range favorites {
			if p, ok := products[m.productID]; ok {
				d.Analytics.FavoriteProducts = append(d.Analytics.FavoriteProducts, FavoriteProduct{Product: p, TotalOrdered: m.TotalQuantity})
			}
		}
	}
	return d, nil
}

type InventoryStatus string

const (
	InventoryOutOfStock InventoryStatus = "out_of_stock"
	InventoryCritical   InventoryStatus = "critical"
	InventoryLow        InventoryStatus = "low"
	InventoryMedium     InventoryStatus = "medium"
	InventoryGood       InventoryStatus = "good"
)

func (s InventoryStatus) urgency() int {
	switch s {
	case InventoryOutOfStock:
		return 0
	case InventoryCritical:
		return 1
	case InventoryLow:
		return 2
	}
	return 3
}

type StockInfo struct {
	CurrentStock      int             `json:"current_stock"`
	DailySalesAvg     float64         `json:"daily_sales_avg"`
	DaysUntilStockout *float64        `json:"days_until_stockout"`
	Status            InventoryStatus `json:"status"`
	TotalSold         int             `json:"total_sold"`
	ReorderSuggested  bool            `json:"reorder_suggested"`
}

type InventoryItem struct {
	Product   *domain.Product `json:"product"`
	StockInfo StockInfo       `json:"stock_info"`
}

type InventorySummary struct {
	TotalProducts   int                     `json:"total_products"`
	StatusBreakdown map[InventoryStatus]int `json:"status_breakdown"`
	ReorderNeeded   int                     `json:"reorder_needed"`
	OutOfStock      int                     `json:"out_of_stock"`
	CriticalStock   int                     `json:"critical_stock"`
}

type Inventory struct {
	Inventory []InventoryItem  `json:"inventory"`
	Summary   InventorySummary `json:"summary"`
	Alerts    []InventoryItem  `json:"alerts"`
}

// Inventory classifies every product by stock level and 30 day sales
// velocity, most urgent first.
func (s *ReportService) Inventory(ctx context.Context) (*Inventory, error) {
	orders, products, err := s.ordersAndProducts(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -velocityWindow)
	sold := map[string]int{}
	recent := map[string]int{}
	for _, o := range orders {
		inWindow := !o.CreatedAt.Before(windowStart)
		for _, item := range o.Items {
			sold[item.ProductID] += item.Quantity
			if inWindow {
				recent[item.ProductID] += item.Quantity
			}
		}
	}

	inv := &Inventory{
		Inventory: make([]InventoryItem, 0, len(products)),
		Summary:   InventorySummary{TotalProducts: len(products), StatusBreakdown: map[InventoryStatus]int{}},
		Alerts:    []InventoryItem{},
	}
	for _, p := range products {
		info := stockInfo(p.StockQuantity, recent[p.ID])
		info.TotalSold = sold[p.ID]
		inv.Inventory = append(inv.Inventory, InventoryItem{Product: p, StockInfo: info})

		inv.Summary.StatusBreakdown[info.Status]++
		if info.ReorderSuggested {
			inv.Summary.ReorderNeeded++
		}
	}
	inv.Summary.OutOfStock = inv.Summary.StatusBreakdown[InventoryOutOfStock]
	inv.Summary.CriticalStock = inv.Summary.StatusBreakdown[InventoryCritical]

	slices.SortStableFunc(inv.Inventory, func(a, b InventoryItem) int {
		return cmp.Compare(a.StockInfo.Status.urgency(), b.StockInfo.Status.urgency())
	})
	for _, item := range inv.Inventory {
		if item.StockInfo.Status.urgency() < 3 {
			inv.Alerts = append(inv.Alerts, item)
		}
	}
	return inv, nil
}

func stockInfo(stock, soldInWindow int) StockInfo {
	info := StockInfo{CurrentStock: stock}
	daily := float64(soldInWindow) / velocityWindow
	info.DailySalesAvg = roundTo(daily, 2)

	daysLeft := math.Inf(1)
	if daily > 0 {
		daysLeft = float64(stock) / daily
		rounded := roundTo(daysLeft, 1)
		info.DaysUntilStockout = &rounded
	}

	switch {
	case stock == 0:
		info.Status = InventoryOutOfStock
	case stock < criticalStock:
		info.Status = InventoryCritical
	case daysLeft < 7:
		info.Status = InventoryLow
	case daysLeft < 14:
		info.Status = InventoryMedium
	default:
		info.Status = InventoryGood
	}
	info.ReorderSuggested = info.Status == InventoryCritical || info.Status == InventoryLow
	return info
}

type DeliveryBucket struct {
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DeliveryCharges struct {
	TotalDeliveryRevenue decimal.Decimal `json:"total_delivery_revenue"`
	FreeDeliveries       int             `json:"free_deliveries"`
	PaidDeliveries       int             `json:"paid_deliveries"`
	AvgDeliveryCharge    decimal.Decimal `json:"avg_delivery_charge"`
}

type AreaBucket struct {
	Area string `json:"area"`
	DeliveryBucket
}

type DeliveryAnalytics struct {
	DeliverySlots    map[domain.DeliverySlot]*DeliveryBucket `json:"delivery_slots"`
	DeliveryAreas    map[string]*DeliveryBucket              `json:"delivery_areas"`
	DeliveryCharges  DeliveryCharges                         `json:"delivery_charges"`
	TopDeliveryAreas []AreaBucket                            `json:"top_delivery_areas"`
}

func (s *ReportService) Delivery(ctx context.Context) (*DeliveryAnalytics, error) {
	orders, err := s.orders.ListOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}

	a := &DeliveryAnalytics{
		DeliverySlots:    map[domain.DeliverySlot]*DeliveryBucket{},
		DeliveryAreas:    map[string]*DeliveryBucket{},
		TopDeliveryAreas: []AreaBucket{},
	}
	for _, o := range orders {
		slot := a.DeliverySlots[o.DeliverySlot]
		if slot == nil {
			slot = &DeliveryBucket{}
			a.DeliverySlots[o.DeliverySlot] = slot
		}
		slot.Count++
		slot.Revenue = slot.Revenue.Add(o.TotalAmount)

		areaName := o.DeliveryAddress.Area
		if areaName == "" {
			areaName = "Unknown"
		}
		area := a.DeliveryAreas[areaName]
		if area == nil {
			area = &DeliveryBucket{}
			a.DeliveryAreas[areaName] = area
		}
		area.Count++
		area.Revenue = area.Revenue.Add(o.TotalAmount)

		a.DeliveryCharges.TotalDeliveryRevenue = a.DeliveryCharges.TotalDeliveryRevenue.Add(o.DeliveryCharge)
		if o.DeliveryCharge.IsZero() {
			a.DeliveryCharges.FreeDeliveries++
		} else {
			a.DeliveryCharges.PaidDeliveries++
		}
	}
	a.DeliveryCharges.AvgDeliveryCharge = average(a.DeliveryCharges.TotalDeliveryRevenue, a.DeliveryCharges.PaidDeliveries)

	for name, b := range a.DeliveryAreas {
		a.TopDeliveryAreas = append(a.TopDeliveryAreas, AreaBucket{Area: name, DeliveryBucket: *b})
	}
	slices.SortFunc(a.TopDeliveryAreas, func(x, y AreaBucket) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Area, y.Area)
	})
	if len(a.TopDeliveryAreas) > 5 {
		a.TopDeliveryAreas = a.TopDeliveryAreas[:5]
	}
	return a, nil
}

func (s *ReportService) ordersAndProducts(ctx context.Context, f repository.OrderFilter) ([]*domain.Order, []*domain.Product, error) {
	orders, err := s.orders.ListOrders(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	products, _, err := s.products.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, nil, err
	}
	return orders, products, nil
}

type salesMetric struct {
	productID string
	ProductMetrics
}

func productMetrics(orders []*domain.Order) map[string]*salesMetric {
	out := map[string]*salesMetric{}
	for _, o := range orders {
		for _, item := range o.Items {
			m := out[item.ProductID]
			if m == nil {
				m = &salesMetric{productID: item.ProductID}
				out[item.ProductID] = m
			}
			m.TotalQuantity += item.Quantity
			m.TotalRevenue = m.TotalRevenue.Add(item.ItemTotal)
			m.OrderCount++
		}
	}
	for _, m := range out {
		if m.OrderCount > 0 {
			m.AvgQuantityPerOrder = float64(m.TotalQuantity) / float64(m.OrderCount)
		}
		if m.TotalQuantity > 0 {
			m.RevenuePerUnit = m.TotalRevenue.Div(decimal.NewFromInt(int64(m.TotalQuantity))).Round(2)
		}
	}
	return out
}

func byQuantity(a, b *salesMetric) int   { return cmp.Compare(b.TotalQuantity, a.TotalQuantity) }
func byRevenue(a, b *salesMetric) int    { return b.TotalRevenue.Cmp(a.TotalRevenue) }
func byOrderCount(a, b *salesMetric) int { return cmp.Compare(b.OrderCount, a.OrderCount) }

// rankMetrics sorts by the given order, ties broken by product id, and keeps
// the first n.
func rankMetrics(metrics map[string]*salesMetric, by func(a, b *salesMetric) int, n int) []*salesMetric {
	out := make([]*salesMetric, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *salesMetric) int {
		if c := by(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.productID, b.productID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func indexProducts(products []*domain.Product) map[string]*domain.Product {
	idx := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
