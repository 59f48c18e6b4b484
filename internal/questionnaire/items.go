package questionnaire

// Factor keys in canonical order. The order is significant: the scoring
// engine iterates factors in this order and the first of several equally
// high factors wins the main-issue tie-break.
const (
	Somatization             = "somatization"
	ObsessiveCompulsive      = "obsessive_compulsive"
	InterpersonalSensitivity = "interpersonal_sensitivity"
	Depression               = "depression"
	Anxiety                  = "anxiety"
	Hostility                = "hostility"
	PhobicAnxiety            = "phobic_anxiety"
	ParanoidIdeation         = "paranoid_ideation"
	Psychoticism             = "psychoticism"
)

type factorDef struct {
	name        string
	displayName string
	itemIDs     []int
}

// factorTable is the factor-to-item index map. The sleep, appetite and
// guilt items (19, 44, 59, 60, 64, 66, 89) are scored under depression.
var factorTable = []factorDef{
	{Somatization, "Somatization", []int{1, 4, 12, 27, 40, 42, 48, 49, 52, 53, 56, 58}},
	{ObsessiveCompulsive, "Obsessive-Compulsive", []int{3, 9, 10, 28, 38, 45, 46, 51, 55, 65}},
	{InterpersonalSensitivity, "Interpersonal Sensitivity", []int{6, 21, 34, 36, 37, 41, 61, 69, 73}},
	{Depression, "Depression", []int{5, 14, 15, 19, 20, 22, 26, 29, 30, 31, 32, 44, 54, 59, 60, 64, 66, 71, 79, 89}},
	{Anxiety, "Anxiety", []int{2, 17, 23, 33, 39, 57, 72, 78, 80, 86}},
	{Hostility, "Hostility", []int{11, 24, 63, 67, 74, 81}},
	{PhobicAnxiety, "Phobic Anxiety", []int{13, 25, 47, 50, 70, 75, 82}},
	{ParanoidIdeation, "Paranoid Ideation", []int{8, 18, 43, 68, 76, 83}},
	{Psychoticism, "Psychoticism", []int{7, 16, 35, 62, 77, 84, 85, 87, 88, 90}},
}

type itemDef struct {
	text   string
	factor string
}

// itemTable lists the 90 questions; position i holds item i+1.
var itemTable = []itemDef{
	{"Headaches", Somatization},
	{"Feeling nervous or shaky inside", Anxiety},
	{"Unwanted thoughts or words that keep running through your mind", ObsessiveCompulsive},
	{"Feeling faint or dizzy", Somatization},
	{"Losing interest in or pleasure from sex", Depression},
	{"Being overly critical of other people", InterpersonalSensitivity},
	{"Feeling that someone else can control your thoughts", Psychoticism},
	{"Feeling that others are to blame for most of your troubles", ParanoidIdeation},
	{"Having trouble remembering things", ObsessiveCompulsive},
	{"Worrying about being careless or untidy", ObsessiveCompulsive},
	{"Being easily annoyed or irritated", Hostility},
	{"Pain in the heart or chest", Somatization},
	{"Feeling afraid in open spaces or on the street", PhobicAnxiety},
	{"Feeling low in energy or slowed down", Depression},
	{"Thoughts of ending your life", Depression},
	{"Hearing voices that other people do not hear", Psychoticism},
	{"Trembling", Anxiety},
	{"Feeling that most people cannot be trusted", ParanoidIdeation},
	{"Poor appetite", Depression},
	{"Crying easily", Depression},
	{"Feeling shy or ill at ease with the opposite sex", InterpersonalSensitivity},
	{"Feeling trapped or caught", Depression},
	{"Suddenly becoming scared for no reason", Anxiety},
	{"Outbursts of temper you cannot control", Hostility},
	{"Being afraid to leave the house alone", PhobicAnxiety},
	{"Blaming yourself for things", Depression},
	{"Pain in the lower back", Somatization},
	{"Feeling blocked when trying to get things done", ObsessiveCompulsive},
	{"Feeling lonely", Depression},
	{"Feeling sad or down", Depression},
	{"Worrying too much about things", Depression},
	{"Losing interest in things", Depression},
	{"Feeling fearful", Anxiety},
	{"Having your feelings easily hurt", InterpersonalSensitivity},
	{"Feeling that others know your private thoughts", Psychoticism},
	{"Feeling that others do not understand or sympathize with you", InterpersonalSensitivity},
	{"Feeling that people are unfriendly or dislike you", InterpersonalSensitivity},
	{"Having to do things very slowly to make sure they are right", ObsessiveCompulsive},
	{"Heart pounding or racing", Anxiety},
	{"Nausea or an upset stomach", Somatization},
	{"Feeling inferior to others", InterpersonalSensitivity},
	{"Sore muscles", Somatization},
	{"Feeling watched or talked about by others", ParanoidIdeation},
	{"Trouble falling asleep", Depression},
	{"Having to check and double-check what you do", ObsessiveCompulsive},
	{"Difficulty making decisions", ObsessiveCompulsive},
	{"Being afraid to travel on buses, subways or trains", PhobicAnxiety},
	{"Trouble catching your breath", Somatization},
	{"Hot or cold spells", Somatization},
	{"Avoiding places, things or activities because they frighten you", PhobicAnxiety},
	{"Your mind going blank", ObsessiveCompulsive},
	{"Numbness or tingling in parts of your body", Somatization},
	{"A lump in your throat", Somatization},
	{"Feeling hopeless about the future", Depression},
	{"Trouble concentrating", ObsessiveCompulsive},
	{"Feeling weak in parts of your body", Somatization},
	{"Feeling tense or keyed up", Anxiety},
	{"Heavy feelings in your arms or legs", Somatization},
	{"Thoughts of death or dying", Depression},
	{"Overeating", Depression},
	{"Feeling uneasy when people watch or talk about you", InterpersonalSensitivity},
	{"Having thoughts that do not feel like your own", Psychoticism},
	{"Urges to hit, injure or harm someone", Hostility},
	{"Waking up too early in the morning", Depression},
	{"Having to repeat actions such as touching, counting or washing", ObsessiveCompulsive},
	{"Restless or disturbed sleep", Depression},
	{"Urges to break or smash things", Hostility},
	{"Having ideas or beliefs that others do not share", ParanoidIdeation},
	{"Feeling very self-conscious around others", InterpersonalSensitivity},
	{"Feeling uneasy in crowds, such as in shops or at the cinema", PhobicAnxiety},
	{"Feeling that everything is an effort", Depression},
	{"Spells of terror or panic", Anxiety},
	{"Feeling uncomfortable eating or drinking in public", InterpersonalSensitivity},
	{"Getting into frequent arguments", Hostility},
	{"Feeling nervous when left alone", PhobicAnxiety},
	{"Others not giving you proper credit for your achievements", ParanoidIdeation},
	{"Feeling lonely even when you are with people", Psychoticism},
	{"Feeling so restless you cannot sit still", Anxiety},
	{"Feeling worthless", Depression},
	{"Feeling that something bad is going to happen to you", Anxiety},
	{"Shouting or throwing things", Hostility},
	{"Being afraid of fainting in public", PhobicAnxiety},
	{"Feeling that people will take advantage of you if you let them", ParanoidIdeation},
	{"Troubling thoughts about sex", Psychoticism},
	{"Feeling that you should be punished for your sins", Psychoticism},
	{"Frightening thoughts or images", Anxiety},
	{"Feeling that something is seriously wrong with your body", Psychoticism},
	{"Never feeling close to another person", Psychoticism},
	{"Feelings of guilt", Depression},
	{"Feeling that something is wrong with your mind", Psychoticism},
}
