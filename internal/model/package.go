package model

// PackageID は販売パッケージの識別子。
// フィールドを非公開にしているため、パッケージ外では下記の定義済み値か
// ParsePackageIDの戻り値以外を生成できない。
type PackageID struct {
	slug string
}

var (
	PackageStarter        = PackageID{"starter"}
	PackagePopular        = PackageID{"popular"}
	PackagePro            = PackageID{"pro"}
	PackagePremiumMonthly = PackageID{"premium_monthly"}
)

// String は外部APIやメタデータで使用する識別子文字列を返す。
func (id PackageID) String() string {
	return id.slug
}

// PackageKind はパッケージの課金種別。
type PackageKind string

const (
	// PackageKindOneTime は単発購入（クレジット付与）。
	PackageKindOneTime PackageKind = "one_time"
	// PackageKindSubscription は月額サブスクリプション。
	PackageKindSubscription PackageKind = "subscription"
)

// CurrencyTHB はタイバーツ。
const CurrencyTHB = "thb"

// Package は静的カタログのパッケージ定義。
// 価格は最小通貨単位（サタン）で保持する。
type Package struct {
	ID       PackageID
	Label    string
	Price    int64
	Credits  int
	Kind     PackageKind
	Currency string
}

var catalog = map[PackageID]Package{
	PackageStarter: {
		ID: PackageStarter, Label: "Starter - 5 เครดิต", Price: 2900, Credits: 5,
		Kind: PackageKindOneTime, Currency: CurrencyTHB,
	},
	PackagePopular: {
		ID: PackagePopular, Label: "Standard - 15 เครดิต", Price: 7900, Credits: 15,
		Kind: PackageKindOneTime, Currency: CurrencyTHB,
	},
	PackagePro: {
		ID: PackagePro, Label: "Pro - 30 เครดิต", Price: 14900, Credits: 30,
		Kind: PackageKindOneTime, Currency: CurrencyTHB,
	},
	PackagePremiumMonthly: {
		ID: PackagePremiumMonthly, Label: "Premium Membership (รายเดือน)", Price: 29900,
		Kind: PackageKindSubscription, Currency: CurrencyTHB,
	},
}

// ParsePackageID は外部入力の文字列をPackageIDに変換する。
// 未知の値の場合はfalseを返す。
func ParsePackageID(s string) (PackageID, bool) {
	id := PackageID{s}
	if _, ok := catalog[id]; !ok {
		return PackageID{}, false
	}
	return id, true
}

// Package はカタログからパッケージ定義を返す。
func (id PackageID) Package() Package {
	return catalog[id]
}

// IsSubscription はサブスクリプション種別かどうかを返す。
func (p Package) IsSubscription() bool {
	return p.Kind == PackageKindSubscription
}
