package warehouse

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

// Receipt documents are recognised by the prefix of their full number:
// PZ is an external goods receipt, PW an internal one.
var receiptPrefixes = []string{"PZ", "PW"}

// intList renders validated integers for an IN (...) clause.
func intList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// signedQty flips returns-like documents so every SUM is net of returns.
func signedQty(q Query, column string) string {
	if len(q.ReturnDocTypes) == 0 {
		return column
	}
	return fmt.Sprintf("CASE WHEN d.dok_Typ IN (%s) THEN -%s ELSE %s END", intList(q.ReturnDocTypes), column, column)
}

// saleFilter restricts documents to non-voided sales and returns issued in
// the given warehouses.
func saleFilter(q Query, warehouses []int) string {
	types := append(append([]int{}, q.SaleDocTypes...), q.ReturnDocTypes...)
	clauses := []string{
		fmt.Sprintf("d.dok_Typ IN (%s)", intList(types)),
		fmt.Sprintf("d.dok_MagId IN (%s)", intList(warehouses)),
		fmt.Sprintf("d.dok_Status <> %d", q.VoidedStatus),
	}
	if len(q.ExcludedSubtypes) > 0 {
		clauses = append(clauses, fmt.Sprintf("d.dok_Podtyp NOT IN (%s)", intList(q.ExcludedSubtypes)))
	}
	return strings.Join(clauses, "\n\t\t\tAND ")
}

func productsQuery(q Query) string {
	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			MAX(tw.tw_Nazwa) AS name,
			MAX(tw.tw_Pole2) AS brand,
			MAX(tw.tw_pole8) AS category,
			MAX(tw.tw_pole7) AS purpose,
			MAX(tw.tw_pole1) AS size,
			MAX(tw.tw_pole6) AS color,
			MAX(tw.tw_pole4) AS season,
			SUM(st.st_Stan) AS stock,
			MAX(tc.tc_CenaNetto1) AS net_price,
			MAX(tc.tc_CenaBrutto1) AS gross_price,
			MAX(tc.tc_CenaMag) AS purchase_cost,
			MAX(tw.tw_StawkaVat) AS vat_rate
		FROM tw_Stan st
		INNER JOIN tw__Towar tw ON st.st_TowId = tw.tw_Id
		LEFT JOIN tw_Cena tc ON st.st_TowId = tc.tc_IdTowar
		WHERE st.st_MagId IN (%s)
		GROUP BY tw.tw_Symbol
		HAVING SUM(st.st_Stan) > 0`, intList(q.StockWarehouseIDs))
}

func aggregatesQuery(q Query) string {
	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			SUM(%s) AS quantity,
			SUM(%s) AS value,
			MAX(d.dok_DataWyst) AS last_sale
		FROM dok__Dokument d
		INNER JOIN dok_Pozycja dp ON d.dok_Id = dp.ob_DokMagId
		INNER JOIN tw__Towar tw ON dp.ob_TowId = tw.tw_Id
		WHERE d.dok_DataWyst >= DATEADD(day, -@lookback, CAST(GETDATE() AS DATE))
			AND %s
		GROUP BY tw.tw_Symbol`,
		signedQty(q, "dp.ob_IloscMag"), signedQty(q, "dp.ob_WartNetto"), saleFilter(q, q.AggregateWarehouseIDs))
}

func recentQuery(q Query) string {
	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			SUM(%s) AS quantity
		FROM dok__Dokument d
		INNER JOIN dok_Pozycja dp ON d.dok_Id = dp.ob_DokMagId
		INNER JOIN tw__Towar tw ON dp.ob_TowId = tw.tw_Id
		WHERE d.dok_DataWyst >= DATEADD(day, -@recent, CAST(GETDATE() AS DATE))
			AND %s
		GROUP BY tw.tw_Symbol`,
		signedQty(q, "dp.ob_IloscMag"), saleFilter(q, q.RecentWarehouseIDs))
}

func dailySalesQuery(q Query) string {
	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			CAST(d.dok_DataWyst AS DATE) AS day,
			SUM(%s) AS quantity
		FROM dok__Dokument d
		INNER JOIN dok_Pozycja dp ON d.dok_Id = dp.ob_DokMagId
		INNER JOIN tw__Towar tw ON dp.ob_TowId = tw.tw_Id
		WHERE d.dok_DataWyst >= DATEADD(day, -@lookback, CAST(GETDATE() AS DATE))
			AND %s
		GROUP BY tw.tw_Symbol, CAST(d.dok_DataWyst AS DATE)
		ORDER BY tw.tw_Symbol, day`,
		signedQty(q, "dp.ob_IloscMag"), saleFilter(q, q.SalesWarehouseIDs))
}

// likeEscaper makes user input literal inside a T-SQL LIKE pattern.
var likeEscaper = strings.NewReplacer("[", "[[]", "%", "[%]", "_", "[_]")

// productSalesQuery is the daily sales extraction narrowed by f, with
// product attributes and values for reporting. Filter values are bound as
// named parameters.
func productSalesQuery(q Query, f domain.SalesFilter) (string, []interface{}) {
	args := []interface{}{sql.Named("lookback", f.Days)}
	where := saleFilter(q, f.WarehouseIDs)

	if v := strings.TrimSpace(f.Category); v != "" {
		where += "\n\t\t\tAND tw.tw_pole8 = @category"
		args = append(args, sql.Named("category", v))
	}
	if v := strings.TrimSpace(f.Brand); v != "" {
		where += "\n\t\t\tAND tw.tw_Pole2 = @brand"
		args = append(args, sql.Named("brand", v))
	}
	if v := strings.TrimSpace(f.Symbol); v != "" {
		where += "\n\t\t\tAND tw.tw_Symbol LIKE @symbol"
		args = append(args, sql.Named("symbol", "%"+likeEscaper.Replace(v)+"%"))
	}

	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			MAX(tw.tw_Nazwa) AS name,
			MAX(tw.tw_Pole2) AS brand,
			MAX(tw.tw_pole8) AS category,
			CAST(d.dok_DataWyst AS DATE) AS day,
			SUM(%s) AS quantity,
			SUM(%s) AS net_value,
			SUM(%s) AS gross_value
		FROM dok__Dokument d
		INNER JOIN dok_Pozycja dp ON d.dok_Id = dp.ob_DokMagId
		INNER JOIN tw__Towar tw ON dp.ob_TowId = tw.tw_Id
		WHERE d.dok_DataWyst >= DATEADD(day, -@lookback, CAST(GETDATE() AS DATE))
			AND %s
		GROUP BY tw.tw_Symbol, CAST(d.dok_DataWyst AS DATE)
		ORDER BY tw.tw_Symbol, day`,
		signedQty(q, "dp.ob_IloscMag"), signedQty(q, "dp.ob_WartNetto"), signedQty(q, "dp.ob_WartBrutto"), where), args
}

func receiptsQuery(q Query) string {
	likes := make([]string, len(receiptPrefixes))
	for i, prefix := range receiptPrefixes {
		likes[i] = fmt.Sprintf("d.dok_NrPelny LIKE '%s%%'", prefix)
	}
	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			d.dok_DataWyst AS day,
			SUM(dp.ob_IloscMag) AS quantity,
			d.dok_NrPelny AS reference
		FROM dok__Dokument d
		INNER JOIN dok_Pozycja dp ON d.dok_Id = dp.ob_DokMagId
		INNER JOIN tw__Towar tw ON dp.ob_TowId = tw.tw_Id
		WHERE (%s)
			AND d.dok_MagId IN (%s)
			AND d.dok_Status <> %d
		GROUP BY tw.tw_Symbol, d.dok_Id, d.dok_DataWyst, d.dok_NrPelny
		ORDER BY tw.tw_Symbol, d.dok_DataWyst`,
		strings.Join(likes, " OR "), intList(q.AggregateWarehouseIDs), q.VoidedStatus)
}

func firstSaleQuery(q Query) string {
	return fmt.Sprintf(`
		SELECT
			tw.tw_Symbol AS symbol,
			MIN(d.dok_DataWyst) AS first_sale
		FROM dok__Dokument d
		INNER JOIN dok_Pozycja dp ON d.dok_Id = dp.ob_DokMagId
		INNER JOIN tw__Towar tw ON dp.ob_TowId = tw.tw_Id
		WHERE d.dok_Typ IN (%s)
			AND d.dok_MagId IN (%s)
			AND d.dok_Status <> %d
		GROUP BY tw.tw_Symbol`,
		intList(q.SaleDocTypes), intList(q.SalesWarehouseIDs), q.VoidedStatus)
}

// purchasePricesQuery returns the latest net purchase price per symbol.
// External receipts take the price of the linked purchase invoice (FZ),
// internal receipts carry their own.
func purchasePricesQuery(q Query) string {
	return fmt.Sprintf(`
		WITH prices AS (
			SELECT
				tw.tw_Symbol AS symbol,
				fz_poz.ob_CenaNetto AS price,
				pz.dok_DataWyst AS doc_date
			FROM dok__Dokument pz
			INNER JOIN dok_Pozycja pz_poz ON pz.dok_Id = pz_poz.ob_DokMagId
			INNER JOIN dok__Dokument fz ON pz_poz.ob_DokHanId = fz.dok_Id
			INNER JOIN dok_Pozycja fz_poz ON fz.dok_Id = fz_poz.ob_DokHanId AND pz_poz.ob_TowId = fz_poz.ob_TowId
			INNER JOIN tw__Towar tw ON pz_poz.ob_TowId = tw.tw_Id
			WHERE pz.dok_NrPelny LIKE 'PZ%%'
				AND fz.dok_NrPelny LIKE 'FZ%%'
				AND pz.dok_Status <> %[1]d
				AND fz_poz.ob_CenaNetto > 0

			UNION ALL

			SELECT
				tw.tw_Symbol AS symbol,
				pw_poz.ob_CenaNetto AS price,
				pw.dok_DataWyst AS doc_date
			FROM dok__Dokument pw
			INNER JOIN dok_Pozycja pw_poz ON pw.dok_Id = pw_poz.ob_DokMagId
			INNER JOIN tw__Towar tw ON pw_poz.ob_TowId = tw.tw_Id
			WHERE pw.dok_NrPelny LIKE 'PW%%'
				AND pw.dok_Status <> %[1]d
				AND pw_poz.ob_CenaNetto > 0
		),
		ranked AS (
			SELECT symbol, price,
				ROW_NUMBER() OVER (PARTITION BY symbol ORDER BY doc_date DESC) AS rn
			FROM prices
		)
		SELECT symbol, price FROM ranked WHERE rn = 1`, q.VoidedStatus)
}
