// Package codes holds the coding table for BOA regions, tissues and whole-body structures,
// and resolves BOA segmentation names against it.
package codes

// Entry binds a canonical key to its external code
type Entry struct {
	Key  string
	Code string
}

// Namespace is an ordered list of entries; order is preserved in every resource built from it
type Namespace []Entry

// Code returns the code registered for key
func (n Namespace) Code(key string) (string, bool) {
	for _, e := range n {
		if e.Key == key {
			return e.Code, true
		}
	}
	return "", false
}

// Keys returns the canonical keys in table order
func (n Namespace) Keys() []string {
	keys := make([]string, len(n))
	for i, e := range n {
		keys[i] = e.Key
	}
	return keys
}

// Table partitions the codes into the three namespaces used by the builders
type Table struct {
	BodyComposition Namespace // regions of the body composition analysis
	Tissues         Namespace
	Structures      Namespace // whole-body segmentation structures
}

// Default returns the shared table. Callers must not modify it.
func Default() *Table {
	return &defaultTable
}

var defaultTable = Table{
	BodyComposition: bodyComposition,
	Tissues:         tissues,
	Structures:      structures,
}

// SNOMED CT where a concept exists, RadLex (RID) otherwise, the key itself when neither has one
var bodyComposition = Namespace{
	{"abdominal_cavity", "361473009"},
	{"thoracic_cavity", "43799004"},
	{"mediastinum", "72410000"},
	{"pericardium", "76848001"},
}

var tissues = Namespace{
	{"bone", "3138006"},
	{"muscle", "91727004"},
	{"tat", "tat"},
	{"imat", "imat"},
	{"sat", "sat"},
	{"vat", "RID50365"},
	{"pat", "pat"},
	{"eat", "eat"},
}

var structures = Namespace{
	{"spleen", "78961009"},
	{"right-kidney", "9846003"},
	{"left-kidney", "18639004"},
	{"gallbladder", "28231008"},
	{"liver", "10200004"},
	{"stomach", "69695003"},
	{"aorta", "15825003"},
	{"inferior-vena-cava", "64131007"},
	{"portal-vein-and-splenic-vein", "110765007"},
	{"pancreas", "15776009"},
	{"right-adrenal-gland", "29392005"},
	{"left-adrenal-gland", "12003004"},
	{"lung-left-upper-lobe", "44714003"},
	{"lung-left-lower-lobe", "41224006"},
	{"lung-right-upper-lobe", "42400003"},
	{"lung-right-middle-lobe", "72481006"},
	{"lung-right-lower-lobe", "266005"},
	{"vertebra-L5", "49668003"},
	{"vertebra-L4", "11994002"},
	{"vertebra-L3", "36470004"},
	{"vertebra-L2", "14293000"},
	{"vertebra-L1", "66794005"},
	{"vertebra-T12", "23215003"},
	{"vertebra-T11", "12989004"},
	{"vertebra-T10", "7610001"},
	{"vertebra-T9", "82687006"},
	{"vertebra-T8", "11068009"},
	{"vertebra-T7", "62487009"},
	{"vertebra-T6", "45296009"},
	{"vertebra-T5", "56401006"},
	{"vertebra-T4", "73071006"},
	{"vertebra-T3", "1626008"},
	{"vertebra-T2", "53733008"},
	{"vertebra-T1", "64864005"},
	{"vertebra-C7", "87391001"},
	{"vertebra-C6", "36054005"},
	{"vertebra-C5", "36978003"},
	{"vertebra-C4", "5329002"},
	{"vertebra-C3", "113205007"},
	{"vertebra-C2", "39976000"},
	{"vertebra-C1", "14806007"},
	{"esophagus", "32849002"},
	{"trachea", "44567001"},
	{"myocardium", "74281007"},
	{"heart-left-atrium", "82471001"},
	{"heart-left-ventricle", "87878005"},
	{"heart-right-atrium", "73829009"},
	{"heart-right-ventricle", "53085002"},
	{"pulmonary-artery", "81040000"},
	{"brain", "12738006"},
	{"iliac-artery-left", "721077009"},
	{"iliac-artery-right", "721035009"},
	{"iliac-vena-left", "764118005"},
	{"iliac-vena-right", "764119002"},
	{"small-bowel", "30315005"},
	{"duodenum", "38848004"},
	{"colon", "71854001"},
	{"rib-left-1", "rib-left-1"},
	{"rib-left-2", "rib-left-2"},
	{"rib-left-3", "rib-left-3"},
	{"rib-left-4", "rib-left-4"},
	{"rib-left-5", "rib-left-5"},
	{"rib-left-6", "rib-left-6"},
	{"rib-left-7", "rib-left-7"},
	{"rib-left-8", "rib-left-8"},
	{"rib-left-9", "rib-left-9"},
	{"rib-left-10", "rib-left-10"},
	{"rib-left-11", "rib-left-11"},
	{"rib-left-12", "rib-left-12"},
	{"rib-right-1", "rib-right-1"},
	{"rib-right-2", "rib-right-2"},
	{"rib-right-3", "rib-right-3"},
	{"rib-right-4", "rib-right-4"},
	{"rib-right-5", "rib-right-5"},
	{"rib-right-6", "rib-right-6"},
	{"rib-right-7", "rib-right-7"},
	{"rib-right-8", "rib-right-8"},
	{"rib-right-9", "rib-right-9"},
	{"rib-right-10", "rib-right-10"},
	{"rib-right-11", "rib-right-11"},
	{"rib-right-12", "rib-right-12"},
	{"humerus-left", "719460003"},
	{"humerus-right", "719461004"},
	{"scapula-left", "719627005"},
	{"scapula-right", "719628000"},
	{"clavicula-left", "720617006"},
	{"clavicula-right", "720616002"},
	{"femur-left", "722738000"},
	{"femur-right", "722739008"},
	{"hip-left", "RID29356"},
	{"hip-right", "RID29355"},
	{"sacrum", "699698002"},
	{"face", "89545001"},
	{"gluteus-maximus-left", "gluteus-maximus-left"},
	{"gluteus-maximus-right", "gluteus-maximus-right"},
	{"gluteus-medius-left", "1236872009"},
	{"gluteus-medius-right", "1236873004"},
	{"gluteus-minimus-left", "gluteus-minimus-left"},
	{"gluteus-minimus-right", "gluteus-minimus-right"},
	{"autochthon-left", "autochthon-left"},
	{"autochthon-right", "autochthon-right"},
	{"iliopsoas-left", "RID30908"},
	{"iliopsoas-right", "RID30907"},
	{"urinary-bladder", "89837001"},
}
